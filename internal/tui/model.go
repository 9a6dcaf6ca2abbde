// Package tui renders the recent files list as an interactive terminal
// sidebar.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/recentfiles/internal/apperr"
	"github.com/starford/recentfiles/internal/models"
	"github.com/starford/recentfiles/internal/recent"
	"github.com/starford/recentfiles/internal/recentservice"
	"github.com/starford/recentfiles/internal/view"
)

// Service is the part of recentservice.Service the sidebar drives.
type Service interface {
	List(ctx context.Context, activePath string) []view.Item
	Open(ctx context.Context, path string, mode models.OpenMode) (*recentservice.OpenResult, error)
	Remove(ctx context.Context, path string) error
	Clear(ctx context.Context)
	Subscribe(fn func(recent.Change)) (release func())
}

// changedMsg signals that the store changed and the list must be redrawn.
type changedMsg struct{}

// Model is the bubbletea model of the sidebar.
type Model struct {
	ctx     context.Context
	svc     Service
	changes chan struct{}
	done    chan struct{}
	release func()
	once    sync.Once

	items    []view.Item
	cursor   int
	active   string
	status   string
	errState bool
	width    int
	height   int
}

// New creates a sidebar subscribed to store changes. Call Close when the
// program exits.
func New(ctx context.Context, svc Service) *Model {
	m := &Model{
		ctx:     ctx,
		svc:     svc,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	m.release = svc.Subscribe(func(recent.Change) {
		select {
		case m.changes <- struct{}{}:
		default:
			// A redraw is already pending.
		}
	})
	m.refresh()
	return m
}

// Close releases the store subscription.
func (m *Model) Close() {
	m.once.Do(func() {
		m.release()
		close(m.done)
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

// waitForChange blocks until the store reports a change.
func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.done:
			return nil
		}
	}
}

func (m *Model) refresh() {
	m.items = m.svc.List(m.ctx, m.active)
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

func (m *Model) selected() (view.Item, bool) {
	if len(m.items) == 0 {
		return view.Item{}, false
	}
	return m.items[m.cursor], true
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.errState = isErr
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case changedMsg:
		m.refresh()
		return m, m.waitForChange()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.Close()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		m.cursor = max(len(m.items)-1, 0)

	case "enter":
		m.open(models.OpenSamePane)

	case "t":
		m.open(models.OpenNewTab)

	case "s":
		m.open(models.OpenNewSplit)

	case "x", "delete":
		if it, ok := m.selected(); ok {
			if err := m.svc.Remove(m.ctx, it.Path); err != nil {
				m.setStatus(err.Error(), true)
			} else {
				m.setStatus("removed "+it.Path, false)
			}
			m.refresh()
		}

	case "C":
		m.svc.Clear(m.ctx)
		m.setStatus("list cleared", false)
		m.refresh()

	case "r":
		m.refresh()
	}
	return m, nil
}

func (m *Model) open(mode models.OpenMode) {
	it, ok := m.selected()
	if !ok {
		return
	}
	res, err := m.svc.Open(m.ctx, it.Path, mode)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		m.setStatus(recentservice.MissingNotice(it.Path), true)
	case err != nil:
		m.setStatus(err.Error(), true)
	default:
		m.active = res.Path
		m.cursor = 0
		m.setStatus(fmt.Sprintf("opened %s (%s)", res.AbsPath, res.Mode), false)
	}
	m.refresh()
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Recent Files"))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(pathStyle.Render("  No recent files"))
		b.WriteString("\n")
	}

	for i, it := range m.items {
		name := it.Title
		if it.Active {
			name = activeStyle.Render(name)
		}
		line := name
		if dir := path.Dir(it.Path); dir != "." {
			line += " " + pathStyle.Render(dir)
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.errState {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(statusStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter open • t tab • s split • x remove • C clear • r refresh • q quit"))
	return b.String()
}

// Run starts the sidebar and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, svc Service) error {
	m := New(ctx, svc)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
