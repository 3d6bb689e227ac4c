// Package tui is the "Find Your Code" terminal front end. It forwards each
// query to the HTTP API and renders the raw response.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	Title       = "Find Your Code"
	emptyPrompt = "Please enter a query."
)

// Asker sends one query.
type Asker interface {
	Ask(ctx context.Context, query string) (Result, error)
}

// Exchange is one query and what came back.
type Exchange struct {
	Query  string
	Output string
	OK     bool
}

type responseMsg struct {
	query  string
	result Result
	err    error
}

type keyMap struct {
	Submit key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

func (km keyMap) ShortHelp() []key.Binding { return []key.Binding{km.Submit, km.Clear, km.Quit} }

func (km keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{km.ShortHelp()} }

func newKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "get response")),
		Clear:  key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

// QueryModel is the bubbletea model of the query screen.
type QueryModel struct {
	ctx      context.Context
	asker    Asker
	styles   *Styles
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap

	pending  bool
	warning  string
	history  []Exchange
	width    int
	quitting bool
}

// NewQueryModel builds the screen. Requests use ctx, so cancelling it
// aborts an in-flight query.
func NewQueryModel(ctx context.Context, asker Asker) QueryModel {
	ti := textinput.New()
	ti.Prompt = "Query: "
	ti.Placeholder = "what does my argument parser do?"
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := DefaultStyles()
	sp.Style = styles.Spinner

	return QueryModel{
		ctx:      ctx,
		asker:    asker,
		styles:   styles,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 12),
		help:     help.New(),
		keys:     newKeyMap(),
		width:    80,
	}
}

func (m QueryModel) Init() tea.Cmd {
	return textinput.Blink
}

// History returns every answered query, oldest first.
func (m QueryModel) History() []Exchange { return m.history }

func (m QueryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-12, 3)
		m.input.Width = max(msg.Width-12, 10)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.history = nil
			m.warning = ""
			m.viewport.SetContent("")
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		}

	case responseMsg:
		m.pending = false
		ex := Exchange{Query: msg.query}
		if msg.err != nil {
			ex.Output = "Error: " + msg.err.Error()
		} else {
			ex.Output = msg.result.Text()
			ex.OK = msg.result.StatusCode == 200
		}
		m.history = append(m.history, ex)
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m QueryModel) submit() (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	query := m.input.Value()
	if query == "" {
		m.warning = emptyPrompt
		return m, nil
	}
	m.warning = ""
	m.pending = true
	m.input.SetValue("")
	return m, tea.Batch(m.spinner.Tick, m.ask(query))
}

func (m QueryModel) ask(query string) tea.Cmd {
	ctx, asker := m.ctx, m.asker
	return func() tea.Msg {
		res, err := asker.Ask(ctx, query)
		return responseMsg{query: query, result: res, err: err}
	}
}

func (m QueryModel) renderHistory() string {
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		badge := m.styles.StatusOK.Render("200")
		if !ex.OK {
			badge = m.styles.StatusError.Render("ERR")
		}
		b.WriteString(badge + " " + m.styles.Label.Render(ex.Query) + "\n")
		b.WriteString(ex.Output)
	}
	return b.String()
}

func (m QueryModel) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.styles.Title.Render(Title),
		m.styles.Border.Render(m.input.View()),
		m.styles.Button.Render("Get Response"),
	}

	switch {
	case m.pending:
		sections = append(sections, m.spinner.View()+" "+m.styles.StatusPending.Render("waiting for response"))
	case m.warning != "":
		sections = append(sections, m.styles.StatusError.Render(m.warning))
	}

	if len(m.history) > 0 {
		sections = append(sections, m.styles.Response.Width(max(m.width-4, 20)).Render(m.viewport.View()))
	}

	sections = append(sections, m.styles.Help.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
