package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/syncer"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunningView ViewState = iota
	ResultView
)

// RunFunc executes a sync run, streaming progress updates into the
// provided channel. The UI owns the channel's lifetime.
type RunFunc func(ctx context.Context, progress chan<- syncer.ProgressUpdate) (*syncer.Result, error)

// Model represents the sync monitor's state.
type Model struct {
	ctx          context.Context
	view         ViewState
	run          RunFunc
	progressChan chan syncer.ProgressUpdate
	progress     syncer.ProgressUpdate
	bar          progress.Model
	result       *syncer.Result
	err          error
	width        int
	help         help.Model
	keys         keyMap
}

type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.quit}}
}

type progressUpdateMsg syncer.ProgressUpdate

type syncCompleteMsg struct {
	result *syncer.Result
	err    error
}

// NewModel creates a sync monitor that drives run and renders its
// progress stream.
func NewModel(ctx context.Context, run RunFunc) *Model {
	return &Model{
		ctx:  ctx,
		view: RunningView,
		run:  run,
		bar:  progress.New(progress.WithDefaultGradient()),
		help: help.New(),
		keys: newKeyMap(),
	}
}

// Init starts the sync run and begins consuming progress updates.
func (m *Model) Init() tea.Cmd {
	m.progressChan = make(chan syncer.ProgressUpdate, 50)

	go func() {
		result, err := m.run(m.ctx, m.progressChan)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case progressUpdateMsg:
		m.progress = syncer.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Result returns the completed run's outcome for the CLI layer.
func (m *Model) Result() (*syncer.Result, error) {
	return m.result, m.err
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderRunning() string {
	title := styles.title.Render("Syncing Playlists")

	var phase string
	switch m.progress.Phase {
	case syncer.PhaseResolve:
		phase = fmt.Sprintf("Resolving playlists (%d/%d)", m.progress.Step, m.progress.Total)
	case syncer.PhaseFetch:
		phase = fmt.Sprintf("Fetching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case syncer.PhaseMaterialize:
		phase = fmt.Sprintf("Copying into folders (%d/%d)", m.progress.Step, m.progress.Total)
	case syncer.PhaseRemove:
		phase = fmt.Sprintf("Removing stale files (%d/%d)", m.progress.Step, m.progress.Total)
	case syncer.PhasePrune:
		phase = fmt.Sprintf("Pruning cache (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Working..."
	}

	var bar string
	if m.progress.Total > 0 {
		bar = m.bar.ViewAs(float64(m.progress.Step) / float64(m.progress.Total))
	}

	message := m.progress.Message
	if m.progress.Err != nil {
		message = styles.warn.Render(message)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n%s\n%s\n\n%s", title, phase, bar, message, helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s",
			styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)), helpView)
	}

	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Sync Complete")
	info := fmt.Sprintf(
		"\nFetched: %d\nCopied: %d\nRemoved: %d\nPruned: %d",
		m.result.Fetched,
		m.result.Materialized,
		m.result.Removed,
		m.result.Pruned,
	)

	var failed string
	if m.result.Failed > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("%d operations failed:", m.result.Failed)))
		for _, f := range m.result.Failures {
			failed += fmt.Sprintf("\n  • %s: %v", f.Identity, f.Err)
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
