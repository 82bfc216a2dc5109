package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/adventure-engine/internal/handlers"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	PlaceHolderText = "What do you do? (try help)"
	transcriptLimit = 20
)

type entryKind int

const (
	entryPlayer entryKind = iota
	entryGame
	entryNote
	entryError
)

type logEntry struct {
	kind entryKind
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	api          *apiClient
	game         *handlers.GameResponse
	log          []logEntry
	logViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Scenario selection state
	showScenarioModal bool
	scenarios         []string
	scenarioMap       map[string]string
	selectedScenario  int
	loadingScenarios  bool

	// Quit confirmation state
	showQuitModal bool
}

type scenariosLoadedMsg struct {
	scenarios   []string
	scenarioMap map[string]string
	err         error
}

type gameCreatedMsg struct {
	game *handlers.GameResponse
	err  error
}

type gameMsg struct {
	game *handlers.GameResponse
	err  error
}

type stepMsg struct {
	resp *handlers.StepResponse
	err  error
}

type transcriptMsg struct {
	resp *handlers.TranscriptResponse
	err  error
}

type copiedMsg struct {
	n   int
	err error
}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
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

var titleCaser = cases.Title(language.English)

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render("> ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:            cfg,
		api:               api,
		textarea:          ta,
		logViewport:      logVp,
		metaViewport:      metaVp,
		showScenarioModal: true,
		loadingScenarios:  true,
	}
}

// roomName pulls the room out of a prompt's first line, "You are in X."
func roomName(prompt string) string {
	first, _, _ := strings.Cut(prompt, "\n")
	if !strings.HasPrefix(first, "You are in ") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(first, "You are in "), ".")
}

func writeMetadata(game *handlers.GameResponse, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME") + "\n\n")

	content.WriteString("Player:\n")
	content.WriteString(game.PlayerID.String()[:8] + "...\n\n")

	if room := roomName(game.Prompt); room != "" {
		content.WriteString("Location:\n")
		content.WriteString(wordwrap.String(titleCaser.String(room), width) + "\n\n")
	}

	if game.Done {
		content.WriteString(winStyle.Render("You made it!") + "\n\n")
	}

	content.WriteString("You can:\n")
	for _, a := range game.Actions {
		content.WriteString(wordwrap.String("• "+a, width) + "\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /history: Transcript\n")
	content.WriteString("• /copy: Copy transcript\n")
	content.WriteString("• /help: Help\n")

	return content.String()
}

// renderLog formats the session log for the given width.
func renderLog(entries []logEntry, width int) string {
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURE ENGINE") + "\n\n")
	content.WriteString("Type a command below. help lists everything you can do.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range entries {
		text := wordwrap.String(e.text, width)
		switch e.kind {
		case entryPlayer:
			content.WriteString(userStyle.Render("> "+text) + "\n\n")
		case entryGame:
			content.WriteString(gameStyle.Render(text) + "\n\n")
		case entryNote:
			content.WriteString(promptStyle.Render(text) + "\n\n")
		case entryError:
			content.WriteString(errorStyle.Render("Error: "+text) + "\n\n")
		}
	}
	return content.String()
}

func (m *ConsoleUI) writeLogContent() {
	content := renderLog(m.log, m.logViewport.Width-6) // Account for left(3) + right(3) padding
	if m.loading {
		content += loadingStyle.Render("...") + "\n"
	}
	m.logViewport.SetContent(content)
	m.logViewport.GotoBottom()
}

func (m *ConsoleUI) layout() {
	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(logWidth - 4)
}

func (m *ConsoleUI) refreshMeta() {
	if m.game != nil {
		m.metaViewport.SetContent(writeMetadata(m.game, m.metaViewport.Width))
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showScenarioModal {
		return m.loadScenarios()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showScenarioModal {
		return m.updateScenarioModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeLogContent()
		m.refreshMeta()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.loading = true
			m.log = append(m.log, logEntry{kind: entryPlayer, text: input})
			m.writeLogContent()
			return m, m.sendCommand(input)
		}

	case stepMsg:
		m.loading = false
		if msg.err != nil {
			m.log = append(m.log, logEntry{kind: entryError, text: msg.err.Error()})
			m.writeLogContent()
			return m, nil
		}
		m.log = append(m.log, logEntry{kind: entryGame, text: msg.resp.Prompt})
		if msg.resp.Done && !m.game.Done {
			m.log = append(m.log, logEntry{kind: entryNote, text: "You have reached the end of this adventure. Press Ctrl+C to leave."})
		}
		m.game.Done = msg.resp.Done
		m.writeLogContent()
		return m, m.refreshGame()

	case gameMsg:
		if msg.err == nil && msg.game != nil {
			m.game = msg.game
			m.refreshMeta()
		}

	case transcriptMsg:
		if msg.err != nil {
			m.log = append(m.log, logEntry{kind: entryError, text: msg.err.Error()})
		} else {
			m.log = append(m.log, logEntry{kind: entryNote, text: formatTranscript(msg.resp)})
		}
		m.writeLogContent()

	case copiedMsg:
		if msg.err != nil {
			m.log = append(m.log, logEntry{kind: entryError, text: msg.err.Error()})
		} else {
			m.log = append(m.log, logEntry{kind: entryNote, text: fmt.Sprintf("Copied %d turns to the clipboard.", msg.n)})
		}
		m.writeLogContent()
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func formatTranscript(t *handlers.TranscriptResponse) string {
	if len(t.Entries) == 0 {
		return "Nothing recorded yet."
	}
	var b strings.Builder
	for i, e := range t.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] > %s\n%s\n", e.At.Local().Format("15:04:05"), e.Command, e.Response)
	}
	return b.String()
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(input) {
	case "/help":
		m.log = append(m.log, logEntry{kind: entryNote, text: `Commands:
• /history - Show the last turns
• /copy - Copy the transcript to the clipboard
• /help - Show this help
• Ctrl+C - Quit game

How to play:
• Type an action such as "take Drawer Key" or "exit North"
• The panel on the right lists every action available right now
• Reach the final room to win`})

	case "/history":
		return m, m.loadTranscript(transcriptLimit)

	case "/copy":
		return m, m.copyTranscript()

	default:
		m.log = append(m.log, logEntry{kind: entryError, text: "unknown console command " + input})
	}

	m.writeLogContent()
	return m, nil
}

func (m ConsoleUI) sendCommand(command string) tea.Cmd {
	playerID := m.game.PlayerID
	return func() tea.Msg {
		resp, err := m.api.step(playerID, command)
		return stepMsg{resp, err}
	}
}

func (m ConsoleUI) refreshGame() tea.Cmd {
	playerID := m.game.PlayerID
	return func() tea.Msg {
		game, err := m.api.getGame(playerID)
		return gameMsg{game, err}
	}
}

func (m ConsoleUI) loadTranscript(limit int) tea.Cmd {
	playerID := m.game.PlayerID
	return func() tea.Msg {
		resp, err := m.api.transcript(playerID, limit)
		return transcriptMsg{resp, err}
	}
}

func (m ConsoleUI) copyTranscript() tea.Cmd {
	playerID := m.game.PlayerID
	return func() tea.Msg {
		resp, err := m.api.transcript(playerID, 0)
		if err != nil {
			return copiedMsg{err: err}
		}
		if err := clipboard.WriteAll(formatTranscript(resp)); err != nil {
			return copiedMsg{err: fmt.Errorf("failed to copy transcript: %w", err)}
		}
		return copiedMsg{n: len(resp.Entries)}
	}
}

func (m ConsoleUI) loadScenarios() tea.Cmd {
	return func() tea.Msg {
		orderedNames, scenarioMap, err := m.api.listScenarios()
		return scenariosLoadedMsg{orderedNames, scenarioMap, err}
	}
}

func (m ConsoleUI) createGame(scenarioFile string) tea.Cmd {
	return func() tea.Msg {
		game, err := m.api.createGame(scenarioFile, m.config.UserID)
		return gameCreatedMsg{game, err}
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
		} else {
			m.scenarios = msg.scenarios
			m.scenarioMap = msg.scenarioMap
		}

	case gameCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.game = msg.game
		m.showScenarioModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
		}
		m.log = append(m.log, logEntry{kind: entryGame, text: m.game.Prompt})
		m.writeLogContent()
		m.refreshMeta()
		m.textarea.Focus()
		m.ready = true
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loadingScenarios {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		if m.err != nil || m.loading {
			return m, nil
		}

		switch msg.Type {
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
				scenarioName := m.scenarios[m.selectedScenario]
				m.loading = true
				return m, m.createGame(m.scenarioMap[scenarioName])
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

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.showScenarioModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderScenarioModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingScenarios:
		content.WriteString(modalTitleStyle.Render("Loading Scenarios..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available scenarios..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(wordwrap.String(m.err.Error(), 50)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Creating Game..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Building your adventure..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Scenario"))
		content.WriteString("\n\n")

		for i, name := range m.scenarios {
			if i == m.selectedScenario {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", name)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showScenarioModal {
		return m.renderScenarioModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready || m.width == 0 {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(logWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}
