// Package tui provides a terminal dashboard for an analysis run.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dejisec/tattletale/internal/model"
)

// LoadFunc produces the report shown by the dashboard.
type LoadFunc func(ctx context.Context) (*model.Report, error)

// App is the main TUI application.
type App struct {
	load LoadFunc
}

// NewApp creates a new TUI application.
func NewApp(load LoadFunc) *App {
	return &App{load: load}
}

// Run starts the TUI application.
func (a *App) Run(ctx context.Context) error {
	p := tea.NewProgram(newModel(ctx, a.load), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// appModel is the main bubbletea model.
type appModel struct {
	ctx       context.Context
	load      LoadFunc
	dashboard *Dashboard
	spinner   spinner.Model
	loading   bool
	width     int
	height    int
	err       error
}

func newModel(ctx context.Context, load LoadFunc) appModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)

	return appModel{
		ctx:     ctx,
		load:    load,
		spinner: s,
		loading: true,
		width:   80,
		height:  24,
	}
}

// Init initializes the model.
func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadReport(m.ctx, m.load),
	)
}

// Update handles messages.
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, loadReport(m.ctx, m.load))
		}
		if m.dashboard != nil {
			return m, m.dashboard.HandleKey(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.dashboard != nil {
			m.dashboard.SetSize(msg.Width, msg.Height)
		}

	case reportMsg:
		m.loading = false
		if m.dashboard == nil {
			m.dashboard = NewDashboard(msg.report, m.width, m.height)
		} else {
			m.dashboard.SetReport(msg.report)
		}

	case errMsg:
		m.loading = false
		m.err = msg.err

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m appModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render("Error: "+m.err.Error()) + "\n" +
			HelpStyle.Render("Press 'r' to retry • 'q' to quit")
	}

	if m.dashboard == nil {
		return LoadingStyle.Render(m.spinner.View() + " Analyzing credential dumps...")
	}

	view := m.dashboard.View()
	if m.loading {
		view = m.spinner.View() + " Reloading...\n" + view
	}
	return view
}

// Messages
type reportMsg struct {
	report *model.Report
}

type errMsg struct {
	err error
}

func loadReport(ctx context.Context, load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		r, err := load(ctx)
		if err != nil {
			return errMsg{err}
		}
		return reportMsg{report: r}
	}
}
