package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/lab-engine/data"
	"github.com/jwebster45206/lab-engine/internal/config"
	"github.com/jwebster45206/lab-engine/internal/storage"
)

const (
	logFile        = "console.log"
	catalogTimeout = 10 * time.Second
)

type ConsoleConfig struct {
	Scenario   string
	TimerScale float64
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file when debugging
	logger := slog.New(slog.DiscardHandler)
	if cfg.LogLevel == slog.LevelDebug {
		f, err := tea.LogToFile(logFile, "console")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = f.Close()
		}()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}

	var scenarios fs.FS = data.Scenarios
	if cfg.DataDir != "" {
		scenarios = os.DirFS(cfg.DataDir)
	}
	catalog := storage.NewFSCatalog(scenarios, logger)

	consoleCfg := &ConsoleConfig{
		Scenario:   cfg.Scenario,
		TimerScale: cfg.TimerScale,
	}

	p := tea.NewProgram(NewConsoleUI(consoleCfg, catalog, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
