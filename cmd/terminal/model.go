package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/wire"
)

type viewState int

const (
	stateBooting viewState = iota
	stateList
	stateDetail
)

// reviewItem adapts a stored review to the bubbles list.
type reviewItem struct {
	review core.Review
	styles styles
}

func (i reviewItem) Title() string {
	return fmt.Sprintf("#%d %s", i.review.PullRequestNum, i.review.PullRequestTitle)
}

func (i reviewItem) Description() string {
	status := string(i.review.Status)
	switch i.review.Status {
	case core.ReviewStatusCompleted:
		status = i.styles.success.Render(status)
	case core.ReviewStatusFailed:
		status = i.styles.failed.Render(status)
	}
	return fmt.Sprintf("%s · %s", status, i.review.CreatedAt.Format(time.RFC822))
}

func (i reviewItem) FilterValue() string {
	return i.review.PullRequestTitle + " " + i.review.PullRequestURL
}

type model struct {
	styles  styles
	toolkit *wire.Toolkit
	cleanup func()

	state    viewState
	spinner  spinner.Model
	list     list.Model
	viewport viewport.Model

	width   int
	height  int
	loading bool
	errText string
}

func initialModel(theme ThemeName) *model {
	st := GetTheme(theme)

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = st.title

	delegate := list.NewDefaultDelegate()
	lst := list.New(nil, delegate, 0, 0)
	lst.Title = "CodeHawk Reviews"
	lst.Styles.Title = st.title
	lst.SetShowStatusBar(false)

	return &model{
		styles:  st,
		state:   stateBooting,
		spinner: sp,
		list:    lst,
		loading: true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeToolkitCmd(), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Let the list handle its own keys while the filter input is open.
		if m.state == stateList && m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cleanup != nil {
				m.cleanup()
			}
			return m, tea.Quit
		case "enter":
			if m.state == stateList {
				if item, ok := m.list.SelectedItem().(reviewItem); ok {
					m.loading = true
					return m, tea.Batch(m.spinner.Tick, renderReviewCmd(item.review, m.contentWidth()))
				}
			}
		case "esc", "backspace":
			if m.state == stateDetail {
				m.state = stateList
				return m, nil
			}
		case "r":
			if m.state == stateList && m.toolkit != nil {
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, loadReviewsCmd(m.toolkit.Store))
			}
		}

	case toolkitReadyMsg:
		if msg.err != nil {
			m.loading = false
			m.errText = msg.err.Error()
			return m, nil
		}
		m.toolkit = msg.toolkit
		m.cleanup = msg.cleanup
		return m, loadReviewsCmd(m.toolkit.Store)

	case reviewsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = "Could not load reviews: " + msg.err.Error()
			return m, nil
		}
		m.errText = ""
		items := make([]list.Item, 0, len(msg.reviews))
		for i := range msg.reviews {
			items = append(items, reviewItem{review: msg.reviews[i], styles: m.styles})
		}
		m.state = stateList
		return m, m.list.SetItems(items)

	case reviewRenderedMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = "Could not render review: " + msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.state = stateDetail
		m.viewport.SetContent(msg.content)
		m.viewport.GotoTop()
		return m, nil

	case errorMsg:
		m.loading = false
		m.errText = msg.err.Error()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		m.viewport = viewport.New(msg.Width-4, msg.Height-6)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	switch m.state {
	case stateBooting:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case stateList:
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	case stateDetail:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	if m.state == stateBooting {
		if m.errText != "" {
			return m.styles.app.Render(
				m.styles.error.Render("Startup failed: "+m.errText) +
					m.styles.help.Render("\n\nPress q to quit."),
			)
		}
		return fmt.Sprintf("\n  %s Connecting to the review store...\n\n", m.spinner.View())
	}

	var body string
	switch m.state {
	case stateDetail:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			m.styles.help.Render("esc: back · ↑/↓: scroll · q: quit"),
		)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.list.View(),
			m.styles.help.Render("enter: open · r: reload · /: filter · q: quit"),
		)
	}

	if m.errText != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.styles.error.Render("⚠ "+m.errText))
	}
	if m.loading {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.styles.status.Render(m.spinner.View()+" working..."))
	}
	return m.styles.app.Render(body)
}

func (m *model) contentWidth() int {
	if m.width > 8 {
		return m.width - 8
	}
	return 80
}
