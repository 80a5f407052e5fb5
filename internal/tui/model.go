package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragdoc/internal/answer"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Ask(ctx context.Context, query string, topK int, destination string) (*answer.Result, error)
}

type answerMsg struct {
	query  string
	result *answer.Result
	err    error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx         context.Context
	service     RAGPort
	destination string
	topK        int

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	title     string
	summary   string
	keywords  []string
	status    string
	result    *answer.Result
	lastQuery string
	cursor    int
	busy      bool
	ready     bool
}

// New creates a chat model. title names the loaded document.
func New(ctx context.Context, service RAGPort, title, summary, destination string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	vp := viewport.New(0, 0)
	return Model{
		ctx:         ctx,
		service:     service,
		destination: destination,
		topK:        topK,
		input:       ti,
		viewport:    vp,
		spinner:     sp,
		title:       title,
		summary:     summary,
		status:      "Loaded. Ask away.",
	}
}

// WithKeywords shows the document's key terms under the summary.
func (m Model) WithKeywords(keywords []string) Model {
	m.keywords = keywords
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.service.Ask(m.ctx, q, m.topK, m.destination)
		return answerMsg{query: q, result: res, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, summary, status, spacer
		if len(m.keywords) > 0 {
			reserved++
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.render())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = nil
		} else {
			m.status = fmt.Sprintf("Answered %q from %d chunks", msg.query, len(msg.result.Matches))
			m.result = msg.result
			m.lastQuery = msg.query
		}
		m.cursor = 0
		m.viewport.SetContent(m.render())
		m.viewport.GotoTop()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.input.Reset()
			m.status = fmt.Sprintf("Thinking about %q", q)
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case "tab":
			if n := m.matchCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "shift+tab":
			if n := m.matchCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) matchCount() int {
	if m.result == nil {
		return 0
	}
	return len(m.result.Matches)
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("ragdoc · " + m.title)
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	if kw := m.keywordLine(); kw != "" {
		summary += "\n" + keywordStyle.Render(kw)
	}
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	status = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) keywordLine() string {
	if len(m.keywords) == 0 {
		return ""
	}
	return "Keywords: " + strings.Join(m.keywords, ", ")
}

func (m Model) render() string {
	if m.result == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(answerStyle.Render(strings.TrimSpace(m.result.Answer)))
	if n := m.matchCount(); n > 0 {
		r := m.result.Matches[m.cursor]
		fmt.Fprintf(&b, "\n\n%s\n\n", sourceStyle.Render(fmt.Sprintf("Source %d/%d  id=%s  score=%.3f  (tab for next)", m.cursor+1, n, r.ID, r.Score)))
		b.WriteString(highlightBestSentence(r.Text, m.lastQuery))
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keywordStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Italic(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	wordRe         = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

// highlightBestSentence marks the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	q := wordSet(query)
	best, bestScore := -1, 0
	for i, s := range sentences {
		if score := overlap(q, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
		if i == best {
			sentences[i] = highlightStyle.Render(sentences[i])
		}
	}
	return strings.Join(sentences, " ")
}

func wordSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlap(query map[string]struct{}, sentence string) int {
	score := 0
	for t := range wordSet(sentence) {
		if _, ok := query[t]; ok {
			score++
		}
	}
	return score
}
