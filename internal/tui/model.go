package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"faqrag/internal/domain"
	"faqrag/internal/service"
)

// AssistantPort is the TUI-facing subset of the answer pipeline.
type AssistantPort interface {
	Answer(ctx context.Context, question string) (domain.Answer, error)
	History(ctx context.Context) []domain.HistoryEntry
}

type turn struct {
	question string
	answer   string
	context  []string
	failed   bool
}

type answerMsg struct {
	question string
	answer   domain.Answer
	err      error
}

// Model is the Bubble Tea model for the terminal chat front end. One question
// is in flight at a time; a spinner shows while the pipeline runs.
type Model struct {
	assistant   AssistantPort
	input       textinput.Model
	viewport    viewport.Model
	spin        spinner.Model
	transcript  []turn
	busy        bool
	ready       bool
	showContext bool
	status      string
}

// New creates the chat model, preloading the persisted conversation history.
func New(assistant AssistantPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Tanyakan seputar BPJS Kesehatan"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	vp := viewport.New(0, 0)

	var transcript []turn
	for _, e := range assistant.History(context.Background()) {
		transcript = append(transcript, turn{question: e.Question, answer: e.Answer})
	}
	return Model{
		assistant:  assistant,
		input:      ti,
		viewport:   vp,
		spin:       sp,
		transcript: transcript,
		status:     "Enter mengirim pertanyaan, ctrl+k menampilkan konteks, ctrl+c keluar.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

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
			return m, tea.Batch(m.spin.Tick, m.ask(q))
		case "ctrl+k":
			m.showContext = !m.showContext
			m.viewport.SetContent(m.renderTranscript())
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}

	case answerMsg:
		m.busy = false
		t := turn{question: msg.question}
		if msg.err != nil {
			t.answer = service.FailureMessage
			t.failed = true
		} else {
			t.answer = msg.answer.Text
			t.context = msg.answer.Context
		}
		m.transcript = append(m.transcript, t)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.assistant.Answer(context.Background(), question)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Asisten BPJS Kesehatan")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spin.View() + " Sedang mencari jawaban..."
	}
	statusLine := statusStyle.Render(status)
	return header + "\n" + transcript + "\n" + input + "\n" + statusLine
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "Belum ada percakapan."
	}
	var b strings.Builder
	for i, t := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("Anda: ") + t.question)
		b.WriteString("\n")
		label := answerStyle
		if t.failed {
			label = errorStyle
		}
		b.WriteString(label.Render("Asisten: ") + t.answer)
		if m.showContext && len(t.context) > 0 {
			b.WriteString("\n" + contextStyle.Render("Konteks:\n"+strings.Join(t.context, "\n\n")))
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	contextStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
