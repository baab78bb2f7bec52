package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/lab-engine/internal/storage"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenario.json|scenario.yaml>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		if err := validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	fmt.Println("Scenario files are valid!")
}

func validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	// Validate filename format
	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	switch strings.ToLower(ext) {
	case ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("scenario file must have a .json, .yaml or .yml extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ext)
	if !scenario.IsValidID(nameWithoutExt) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_lab.json, not my-lab.json or MyLab.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	s, err := storage.Decode(baseName, data)
	if err != nil {
		return fmt.Errorf("file %s failed strict unmarshaling: %w", filename, err)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation errors in %s:\n%w", filename, err)
	}

	report, err := playthrough(s)
	if err != nil {
		return fmt.Errorf("playthrough of %s failed: %w", filename, err)
	}
	fmt.Printf("  %d rooms, %d objects, completed in %d interactions (%s of timers)\n",
		len(s.Rooms), len(s.Objects), report.Activations, report.TimerTime)
	return nil
}
