package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/ci-warden/internal/app"
	"github.com/sevigo/ci-warden/internal/badge"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
)

const asciiLogo = `
 ██████╗██╗    ██╗    ██╗ █████╗ ██████╗ ██████╗ ███████╗███╗   ██╗
██╔════╝██║    ██║    ██║██╔══██╗██╔══██╗██╔══██╗██╔════╝████╗  ██║
██║     ██║    ██║ █╗ ██║███████║██████╔╝██║  ██║█████╗  ██╔██╗ ██║
██║     ██║    ██║███╗██║██╔══██║██╔══██╗██║  ██║██╔══╝  ██║╚██╗██║
╚██████╗██║    ╚███╔███╔╝██║  ██║██║  ██║██████╔╝███████╗██║ ╚████║
 ╚═════╝╚═╝     ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚══════╝╚═╝  ╚═══╝
`

const helpText = `
  /record [sha]             Show the stored test record for a commit.
  /badge [context] [sha]    Render the coverage or status badge for a commit.
  /run [sha] [--force]      Run the tests for a commit and store the result.
  /queue                    List the jobs waiting to be processed.
  /help                     Show this help message.
  /exit, /quit              Exit CI Warden.`

type model struct {
	styles  styles
	app     *app.App
	cleanup func()

	ctx    context.Context
	cancel context.CancelFunc

	// UI Components
	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	isLoading bool
	running   int

	history []string
}

func initialModel(theme ThemeName) *model {
	styles := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Enter a command, /help lists them..."
	ta.Focus()
	ta.Prompt = styles.prompt.Render("► ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = styles.ascii

	ctx, cancel := context.WithCancel(context.Background())
	return &model{
		styles:    styles,
		ctx:       ctx,
		cancel:    cancel,
		textarea:  ta,
		spinner:   sp,
		isLoading: true,
		history:   []string{styles.ascii.Render(asciiLogo), "", "⚙ STARTING CI WARDEN..."},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeAppCmd(m.ctx), m.spinner.Tick)
}

// shutdown stops the queue worker and releases the application resources.
func (m *model) shutdown() {
	m.cancel()
	if m.cleanup != nil {
		m.cleanup()
	}
}

func (m *model) appendHistory(lines ...string) {
	m.history = append(m.history, lines...)
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.shutdown()
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			return m, m.processCommand(input)
		}

	case appInitializedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendHistory("", m.styles.error.Render(msg.err.Error()))
			return m, nil
		}
		m.app = msg.app
		m.cleanup = msg.cleanup
		m.appendHistory("", m.styles.success.Render("✓ SYSTEM ONLINE"), "", "Type /help for commands.")
		return m, nil

	case recordLoadedMsg:
		m.isLoading = false
		if msg.rec == nil {
			m.appendHistory(m.styles.inactive.Render(fmt.Sprintf("No test record for %s. Use /run %s to test it.", util.ShortID(msg.sha, 0), msg.sha)))
			return m, nil
		}
		m.appendHistory(m.renderRecord(msg.rec))
		return m, nil

	case badgeLoadedMsg:
		m.isLoading = false
		m.appendHistory(m.styles.renderBadge(msg.payload))
		return m, nil

	case runCompleteMsg:
		m.running--
		m.isLoading = m.running > 0
		switch {
		case !msg.ran && msg.err != nil:
		case !msg.ran:
			m.appendHistory(m.styles.inactive.Render(fmt.Sprintf("%s: branch not configured for testing", util.ShortID(msg.sha, 0))))
		default:
			line := fmt.Sprintf("%s %s: %s", util.ShortID(msg.sha, 0), msg.outcome.Status, msg.outcome.Description)
			m.appendHistory(m.styles.status(msg.outcome.Status).Render(line))
		}
		if msg.err != nil {
			m.appendHistory(m.styles.error.Render("⚠ " + msg.err.Error()))
		}
		return m, nil

	case queueLoadedMsg:
		if len(msg.pending) == 0 {
			m.appendHistory(m.styles.inactive.Render("The queue is empty."))
			return m, nil
		}
		var b strings.Builder
		b.WriteString(m.styles.success.Render(fmt.Sprintf("PENDING JOBS (%d):", len(msg.pending))))
		for _, job := range msg.pending {
			forced := ""
			if job.Data.IsForced() {
				forced = m.styles.command.Render(" forced")
			}
			fmt.Fprintf(&b, "\n  - %s %s%s", m.styles.prompt.Render(util.ShortID(job.Data.SHA, 0)), m.styles.inactive.Render(job.ID), forced)
		}
		m.appendHistory(b.String())
		return m, nil

	case errorMsg:
		m.isLoading = m.running > 0
		m.appendHistory("", m.styles.error.Render("⚠ "+msg.err.Error()))
		return m, nil

	case tea.WindowSizeMsg:
		m.styles.header = m.styles.header.Width(msg.Width - 4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 8
		m.textarea.SetWidth(msg.Width - 10)
		m.viewport.SetContent(strings.Join(m.history, "\n"))
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) View() string {
	if m.app == nil && m.isLoading {
		return fmt.Sprintf("\n  %s BOOTING SYSTEM...\n\n", m.spinner.View())
	}

	var statusParts []string
	if m.app != nil {
		statusParts = append(statusParts, fmt.Sprintf("QUEUE: %d pending", m.app.Queue.Len()))
	}
	if m.running > 0 {
		statusParts = append(statusParts, m.styles.success.Render(fmt.Sprintf("● %d RUNNING", m.running)))
	} else {
		statusParts = append(statusParts, m.styles.inactive.Render("○ IDLE"))
	}
	status := m.styles.inactive.Render(strings.Join(statusParts, " │ "))

	var loadingIndicator string
	if m.isLoading {
		loadingIndicator = " " + m.spinner.View() + " " + m.styles.success.Render("PROCESSING...")
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			"",
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left,
					m.textarea.View(),
					loadingIndicator,
				),
			),
			status,
		),
	)
}

func (m *model) renderRecord(rec *core.TestRecord) string {
	coverage := "-"
	if rec.Coverage != nil {
		coverage = util.FormatPercent(*rec.Coverage)
	}
	return strings.Join([]string{
		m.styles.status(rec.Status).Render(fmt.Sprintf("● %s %s", util.ShortID(rec.Commit, 0), rec.Status)),
		"  " + rec.Description,
		m.styles.inactive.Render(fmt.Sprintf("  coverage %s │ updated %s", coverage, rec.UpdatedAt.Format("2006-01-02 15:04:05"))),
	}, "\n")
}

func (m *model) processCommand(input string) tea.Cmd {
	m.appendHistory(m.styles.prompt.Render("► ") + input)

	parts := strings.Fields(input)
	command := parts[0]
	args := parts[1:]

	if m.app == nil && command != "/help" && command != "/exit" && command != "/quit" {
		m.appendHistory(m.styles.error.Render("The application is not initialized."))
		return nil
	}

	switch command {
	case "/record", "/r":
		if len(args) != 1 {
			m.appendHistory(m.styles.error.Render("USAGE: /record [sha]"))
			return nil
		}
		m.isLoading = true
		return tea.Batch(m.spinner.Tick, loadRecordCmd(m.app, args[0]))

	case "/badge", "/b":
		if len(args) != 2 {
			m.appendHistory(m.styles.error.Render(fmt.Sprintf("USAGE: /badge [%s] [sha]", strings.Join(badge.Contexts, "|"))))
			return nil
		}
		m.isLoading = true
		return tea.Batch(m.spinner.Tick, loadBadgeCmd(m.app, args[0], args[1]))

	case "/run":
		sha, force, err := parseRunArgs(args)
		if err != nil {
			m.appendHistory(m.styles.error.Render("USAGE: /run [sha] [--force]: "+err.Error()))
			return nil
		}
		m.isLoading = true
		m.running++
		m.appendHistory(m.styles.command.Render(fmt.Sprintf("→ Testing %s...", util.ShortID(sha, 0))))
		return tea.Batch(m.spinner.Tick, runTestsCmd(m.ctx, m.app, sha, force))

	case "/queue", "/q":
		return loadQueueCmd(m.app)

	case "/help", "/h":
		m.appendHistory("", m.styles.success.Render("AVAILABLE COMMANDS:")+helpText)
		return nil

	case "/exit", "/quit":
		m.shutdown()
		return tea.Quit

	default:
		m.appendHistory("", m.styles.error.Render(fmt.Sprintf("UNKNOWN COMMAND: %s", command)), m.styles.inactive.Render("Type /help for assistance."))
		return nil
	}
}
