package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/lab-engine/internal/storage"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

const gelRows = 10

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	catalog      storage.Catalog
	logger       *slog.Logger
	game         *game
	snap         state.Snapshot
	actions      []action
	cursor       int
	mainViewport viewport.Model
	metaViewport viewport.Model
	help         help.Model
	keys         keyMap
	ready        bool
	width        int
	height       int
	err          error
	status       string

	// Scenario selection state
	showScenarioModal bool
	scenarios         []storage.ScenarioInfo
	selectedScenario  int
	loadingScenarios  bool
	loading           bool

	// Quit confirmation state
	showQuitModal bool

	// Running timer state
	timerStarted time.Time
}

type scenariosLoadedMsg struct {
	scenarios []storage.ScenarioInfo
	err       error
}

type gameCreatedMsg struct {
	game *game
	err  error
}

type progressTickMsg struct{}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Copy    key.Binding
	Restart key.Binding
	PgUp    key.Binding
	PgDown  key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.PgUp, k.PgDown, k.Copy, k.Restart, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Enter:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "do")),
	PgUp:    key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "scroll up")),
	PgDown:  key.NewBinding(key.WithKeys("pgdown", "f"), key.WithHelp("pgdn", "scroll down")),
	Copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy state")),
	Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	mainPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // teal
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, catalog storage.Catalog, logger *slog.Logger) ConsoleUI {
	mainVp := viewport.New(50, 20)
	mainVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:            cfg,
		catalog:           catalog,
		logger:            logger,
		mainViewport:      mainVp,
		metaViewport:      metaVp,
		help:              help.New(),
		keys:              defaultKeys,
		showScenarioModal: true,
		loadingScenarios:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadScenarios()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle scenario modal first
	if m.showScenarioModal {
		return m.updateScenarioModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var vpCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.mainViewport, vpCmd = m.mainViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.refresh()
		return m, nil

	case timerMsg:
		msg.deliver()
		m.refresh()
		return m, m.game.waitForTimer()

	case progressTickMsg:
		if m.timerRunning() {
			m.writeMainContent()
			return m, progressTick()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.showQuitModal = true
			return m, nil
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.actions)-1 {
				m.cursor++
			}
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			return m.runAction()
		case key.Matches(msg, m.keys.Restart):
			m.game.session.Restart()
			m.status = "Started a new game."
			m.err = nil
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			m.copySnapshot()
			return m, nil
		case key.Matches(msg, m.keys.PgUp):
			m.mainViewport.HalfPageUp()
			return m, nil
		case key.Matches(msg, m.keys.PgDown):
			m.mainViewport.HalfPageDown()
			return m, nil
		}
	}

	m.mainViewport, vpCmd = m.mainViewport.Update(msg)
	return m, vpCmd
}

// runAction performs the action under the cursor.
func (m ConsoleUI) runAction() (tea.Model, tea.Cmd) {
	if m.cursor >= len(m.actions) {
		return m, nil
	}
	act := m.actions[m.cursor]

	m.status = ""
	m.err = act.run(m.game.session)
	if m.err != nil {
		m.logger.Debug("Action rejected", "action", act.label, "error", m.err)
	}

	var cmd tea.Cmd
	if m.err == nil && act.starts {
		m.timerStarted = time.Now()
		cmd = progressTick()
	}
	m.refresh()
	return m, cmd
}

func (m *ConsoleUI) copySnapshot() {
	data, err := m.game.snapshotJSON()
	if err == nil {
		err = clipboard.WriteAll(data)
	}
	if err != nil {
		m.err = fmt.Errorf("copy failed: %w", err)
		return
	}
	m.err = nil
	m.status = "Session state copied to the clipboard."
}

// refresh takes a new snapshot and rebuilds everything derived from it.
func (m *ConsoleUI) refresh() {
	prevActive := ""
	if m.snap.Active != nil {
		prevActive = fmt.Sprintf("%s/%d", m.snap.Active.ObjectID, m.snap.Active.Index)
	}

	m.snap = m.game.session.Snapshot()
	m.actions = buildActions(m.snap)

	active := ""
	if m.snap.Active != nil {
		active = fmt.Sprintf("%s/%d", m.snap.Active.ObjectID, m.snap.Active.Index)
	}
	if active != prevActive || m.cursor >= len(m.actions) {
		m.cursor = 0
	}

	m.layout()
	m.writeMainContent()
	m.metaViewport.SetContent(writeMetadata(m.snap, m.metaViewport.Width))
	if active != prevActive {
		m.mainViewport.GotoTop()
	}
}

func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	mainWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - mainWidth - 6

	// Room for the separator, the action list, the status line and the help
	reserved := len(m.actions) + 7
	m.mainViewport.Width = mainWidth - 2
	m.mainViewport.Height = max(m.height-reserved, 5)
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 3
	m.help.Width = mainWidth - 4
}

func (m ConsoleUI) timerRunning() bool {
	if m.snap.Active == nil || m.snap.Active.Step == nil {
		return false
	}
	sv := m.snap.Active.Step
	return sv.Kind == scenario.StepTimed && sv.Started && !sv.Elapsed
}

// writeMainContent renders the current room or the active interaction.
func (m *ConsoleUI) writeMainContent() {
	width := m.mainViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.snap.ScenarioName)) + "\n\n")

	if m.snap.Active == nil {
		content.WriteString(m.writeRoom(width))
	} else {
		content.WriteString(m.writeInteraction(m.snap.Active, width))
	}

	m.mainViewport.SetContent(content.String())
}

func (m ConsoleUI) writeRoom(width int) string {
	var content strings.Builder
	room := m.snap.Room(m.snap.CurrentRoom)
	if room != nil {
		content.WriteString(headingStyle.Render(room.Name) + "\n\n")
	}
	if m.snap.Complete {
		content.WriteString(doneStyle.Render(wordwrap.String(m.snap.CompletionText, width)) + "\n\n")
	}
	content.WriteString(wordwrap.String("Objective: "+m.snap.Objective, width) + "\n\n")
	content.WriteString(promptStyle.Render("Choose something to work on, or move to another unlocked room.") + "\n")
	return content.String()
}

func (m ConsoleUI) writeInteraction(av *state.ActiveView, width int) string {
	var content strings.Builder
	content.WriteString(headingStyle.Render(av.ObjectName))
	content.WriteString(promptStyle.Render(fmt.Sprintf("  step %d of %d", av.Index+1, av.Len)) + "\n\n")

	sv := av.Step
	if sv == nil {
		return content.String()
	}
	content.WriteString(wordwrap.String(sv.Description, width) + "\n\n")

	switch sv.Kind {
	case scenario.StepTimed:
		switch {
		case sv.Elapsed:
			content.WriteString(doneStyle.Render("Done.") + "\n")
		case sv.Started:
			if sv.RunningText != "" {
				content.WriteString(loadingStyle.Render(wordwrap.String(sv.RunningText, width)) + "\n\n")
			}
			content.WriteString(m.renderProgressBar(width) + "\n")
		default:
			content.WriteString(promptStyle.Render("Runs for "+sv.Delay+".") + "\n")
		}

	case scenario.StepChoice:
		if len(sv.Lanes) > 0 {
			content.WriteString(renderGel(sv.Lanes) + "\n\n")
		}
		if sv.Prompt != "" {
			content.WriteString(wordwrap.String(sv.Prompt, width) + "\n")
		}
		if sv.Explanation != "" {
			content.WriteString("\n" + doneStyle.Render(wordwrap.String(sv.Explanation, width)) + "\n")
		}

	case scenario.StepDisplay:
		if sv.Image != "" {
			content.WriteString(promptStyle.Render("["+sv.Image+"]") + "\n\n")
		}
		for _, slide := range sv.Slides {
			if slide.Title != "" {
				content.WriteString(headingStyle.Render(slide.Title) + "\n")
			}
			for _, line := range slide.Lines {
				content.WriteString(wordwrap.String("• "+line, width) + "\n")
			}
			content.WriteString("\n")
		}
	}
	return content.String()
}

// renderGel draws each lane as a column with its bands.
func renderGel(lanes []scenario.Lane) string {
	const laneWidth = 9

	var out strings.Builder
	for _, lane := range lanes {
		label := lane.Label
		if len(label) > laneWidth-1 {
			label = label[:laneWidth-1]
		}
		out.WriteString(fmt.Sprintf("%-*s", laneWidth, label))
	}
	out.WriteString("\n")

	for row := 0; row < gelRows; row++ {
		for _, lane := range lanes {
			cell := "   │   "
			for _, pos := range lane.Bands {
				if pos*gelRows/100 == row || (pos == 100 && row == gelRows-1) {
					cell = " ▬▬▬▬▬ "
					break
				}
			}
			out.WriteString(cell + "  ")
		}
		out.WriteString("\n")
	}
	return separatorStyle.Render(out.String())
}

func writeMetadata(snap state.Snapshot, width int) string {
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render("LAB MAP") + "\n\n")
	for _, room := range snap.Rooms {
		switch {
		case room.Current:
			content.WriteString(currentStyle.Render("▶ "+room.Name) + "\n")
		case room.Unlocked:
			content.WriteString("  " + room.Name + "\n")
		default:
			content.WriteString(lockedStyle.Render("  "+room.Name+" (locked)") + "\n")
		}
	}

	content.WriteString("\n" + titleStyle.Render("OBJECTIVE") + "\n")
	content.WriteString(wordwrap.String(snap.Objective, width) + "\n")

	content.WriteString("\n" + titleStyle.Render("INVENTORY") + "\n")
	if len(snap.Inventory) == 0 {
		content.WriteString(promptStyle.Render("Empty") + "\n")
	}
	for _, item := range snap.Inventory {
		content.WriteString("• " + item.Name + "\n")
	}

	if snap.Active != nil && len(snap.Active.Checklist) > 1 {
		content.WriteString("\n" + titleStyle.Render("PROTOCOL") + "\n")
		for i, entry := range snap.Active.Checklist {
			line := fmt.Sprintf("%d. %s", i+1, entry.Label)
			switch {
			case entry.Done:
				content.WriteString(doneStyle.Render("✓ "+line) + "\n")
			case i == snap.Active.Index:
				content.WriteString(currentStyle.Render("▶ "+line) + "\n")
			default:
				content.WriteString("  " + line + "\n")
			}
		}
	}

	content.WriteString("\n" + promptStyle.Render(fmt.Sprintf("Session %s...", snap.SessionID.String()[:8])) + "\n")
	return content.String()
}

func (m ConsoleUI) renderActions() string {
	if len(m.actions) == 0 {
		if m.timerRunning() {
			return loadingStyle.Render("Waiting for the timer...")
		}
		return promptStyle.Render("Nothing to do here.")
	}

	var out strings.Builder
	for i, act := range m.actions {
		label := act.label
		switch {
		case act.selected:
			label = "● " + label
		case act.done:
			label = "✓ " + label
		default:
			label = "  " + label
		}
		if i == m.cursor {
			out.WriteString(cursorStyle.Render("▶" + label))
		} else {
			out.WriteString(" " + label)
		}
		if i < len(m.actions)-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}

func (m ConsoleUI) loadScenarios() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()
		infos, err := m.catalog.ListScenarios(ctx)
		return scenariosLoadedMsg{infos, err}
	}
}

func (m ConsoleUI) createGame(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()
		scen, err := m.catalog.GetScenario(ctx, id)
		if err != nil {
			return gameCreatedMsg{nil, err}
		}
		g, err := newGame(scen, m.config.TimerScale, m.logger)
		return gameCreatedMsg{g, err}
	}
}

func (m ConsoleUI) updateScenarioModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case scenariosLoadedMsg:
		m.loadingScenarios = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.scenarios = msg.scenarios
		for i, info := range m.scenarios {
			if info.ID == m.config.Scenario {
				m.selectedScenario = i
			}
		}
		// Nothing to choose from
		if len(m.scenarios) == 1 {
			m.loading = true
			return m, m.createGame(m.scenarios[0].ID)
		}

	case gameCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.game = msg.game
		m.showScenarioModal = false
		m.ready = m.width > 0
		m.refresh()
		return m, m.game.waitForTimer()

	case tea.KeyMsg:
		if m.loadingScenarios || m.loading || m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selectedScenario > 0 {
				m.selectedScenario--
			}
		case tea.KeyDown:
			if m.selectedScenario < len(m.scenarios)-1 {
				m.selectedScenario++
			}
		case tea.KeyEnter:
			if len(m.scenarios) > 0 {
				m.loading = true
				return m, m.createGame(m.scenarios[m.selectedScenario].ID)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refreshIfPlaying()

	case timerMsg:
		// Timers keep running behind the modal
		msg.deliver()
		m.refreshIfPlaying()
		return m, m.game.waitForTimer()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N", "esc":
				m.showQuitModal = false
				if m.timerRunning() {
					return m, progressTick()
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m *ConsoleUI) refreshIfPlaying() {
	if m.game != nil {
		m.refresh()
	}
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress in this lab will be lost.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	// Create the modal
	modal := modalStyle.Width(50).Render(content.String())

	// Center the modal
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderScenarioModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.loadingScenarios {
		content.WriteString(modalTitleStyle.Render("Loading Scenarios..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while the lab catalogue loads..."))
	} else if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Preparing the Lab..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Setting out the equipment..."))
	} else {
		content.WriteString(modalTitleStyle.Render("Select a Scenario"))
		content.WriteString("\n\n")

		for i, info := range m.scenarios {
			if i == m.selectedScenario {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", info.Name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", info.Name)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	// Create the modal
	modal := modalStyle.Width(60).Render(content.String())

	// Center the modal
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showScenarioModal {
		return m.renderScenarioModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	mainWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - mainWidth - 6

	status := ""
	switch {
	case m.err != nil:
		status = errorStyle.Render(m.err.Error())
	case m.status != "":
		status = doneStyle.Render(m.status)
	}

	mainPanel := mainPanelStyle.Width(mainWidth).Height(m.height - 1).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.mainViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(mainWidth-4, 1))),
			m.renderActions(),
			"",
			status,
			m.help.View(m.keys),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 1).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, mainPanel, metaPanel)
}

// renderProgressBar fills in proportion to the running timer's elapsed time
func (m ConsoleUI) renderProgressBar(width int) string {
	usable := width
	if usable > 60 {
		usable = 60 // avoid overly wide bars
	} else if usable < 10 {
		usable = 10 // minimum visible bar
	}

	total := time.Duration(0)
	if m.snap.Active != nil && m.snap.Active.Step != nil {
		total = m.game.timerDelay(m.snap.Active.Step)
	}
	filled := usable
	if total > 0 {
		filled = int(float64(usable) * float64(time.Since(m.timerStarted)) / float64(total))
	}
	if filled > usable {
		filled = usable
	}

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
