// Package tui is a terminal chat front-end for one conversation session.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/agent/state"
)

const TypingIndicator = "Typing..."

type replyMsg struct {
	reply contractx.ChatMessage
	err   error
}

type App struct {
	ctx     context.Context
	session *state.Session

	input   textinput.Model
	spinner spinner.Model

	width    int
	height   int
	status   string
	quitting bool
}

func NewApp(ctx context.Context, session *state.Session) *App {
	input := textinput.New()
	input.Placeholder = "Ask about vendors or purchase orders"
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	return &App{
		ctx:     ctx,
		session: session,
		input:   input,
		spinner: sp,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), textinput.Blink)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			a.quitting = true
			return a, tea.Quit
		}
		if a.session.Composing() {
			return a, nil
		}
		if key.Matches(msg, keys.Enter) {
			return a, a.submit()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(10, msg.Width-8)

	case replyMsg:
		a.status = ""
		if msg.err != nil {
			a.status = msg.err.Error()
		}
		return a, textinput.Blink

	case spinner.TickMsg:
		if !a.session.Composing() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.session.SetPending(a.input.Value())
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// submit sends the pending buffer. Empty input is ignored.
func (a *App) submit() tea.Cmd {
	a.session.SetPending(a.input.Value())
	turn, err := a.session.SubmitPending(a.ctx)
	a.input.Reset()
	if err != nil {
		if errors.Is(err, state.ErrInvalidMessage) {
			return nil
		}
		a.status = err.Error()
		return nil
	}
	a.status = ""
	return tea.Batch(a.spinner.Tick, waitForReply(turn))
}

func waitForReply(turn *state.Turn) tea.Cmd {
	return func() tea.Msg {
		reply, err := turn.Wait()
		return replyMsg{reply: reply, err: err}
	}
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render("Vendor Desk Assistant"))
	b.WriteString("\n\n")

	for _, msg := range a.session.Transcript() {
		b.WriteString(renderMessage(msg, a.width))
		b.WriteString("\n")
	}

	if a.session.Composing() {
		b.WriteString(a.spinner.View() + " " + styleStatusBar.Render(TypingIndicator))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleBox.Render(a.input.View()))
	b.WriteString("\n")
	if a.status != "" {
		b.WriteString(styleError.Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString(styleStatusBar.Render("enter send • esc quit"))
	return b.String()
}

func renderMessage(msg contractx.ChatMessage, width int) string {
	label := styleBot.Render("Bot:")
	if msg.Role == contractx.RoleUser {
		label = styleUser.Render("You:")
	}
	text := msg.Text
	if width > 10 {
		text = lipgloss.NewStyle().Width(width - 6).Render(text)
	}
	return label + " " + text
}

// Run blocks until the user quits.
func Run(ctx context.Context, session *state.Session) error {
	_, err := tea.NewProgram(NewApp(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
