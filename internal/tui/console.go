package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	appLog "kidplan/internal/log"
)

// Console implements selection.UI for one-shot commands: the title comes
// from a preset or a standalone prompt, notices are printed to out.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	preset string
	opts   []tea.ProgramOption
}

// NewConsole returns a Console. A non-empty preset answers the prompt
// without asking.
func NewConsole(out io.Writer, preset string, opts ...tea.ProgramOption) *Console {
	return &Console{out: out, preset: preset, opts: opts}
}

func (c *Console) RequestTitle(ctx context.Context, prompt string) (string, bool, error) {
	if c.preset != "" {
		return c.preset, true, nil
	}
	return PromptTitle(ctx, prompt, c.opts...)
}

func (c *Console) Notify(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ShowNotice(c.out, message); err != nil {
		appLog.Error("tui: notice not shown", err, "message", message)
	}
}

// ShowNotice prints message in the notice frame.
func ShowNotice(w io.Writer, message string) error {
	_, err := fmt.Fprintln(w, noticeBorder.Render(message))
	return err
}

// PromptTitle runs a single-line prompt program and returns what was typed.
// ok is false when the prompt was cancelled.
func PromptTitle(ctx context.Context, label string, opts ...tea.ProgramOption) (string, bool, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(newPromptModel(label), opts...)
	final, err := p.Run()
	if err != nil {
		return "", false, err
	}
	pm := final.(*promptModel)
	return pm.input.Value(), pm.ok, nil
}

type promptModel struct {
	label string
	input textinput.Model
	ok    bool
	done  bool
}

func newPromptModel(label string) *promptModel {
	pm := &promptModel{label: label, input: newTitleInput()}
	pm.input.Focus()
	return pm
}

func (p *promptModel) Init() tea.Cmd { return textinput.Blink }

func (p *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, isKey := msg.(tea.KeyMsg); isKey {
		switch key.Type {
		case tea.KeyEnter:
			p.ok, p.done = true, true
			return p, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			p.done = true
			return p, tea.Quit
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *promptModel) View() string {
	if p.done {
		return ""
	}
	return dialogStyle.Render(p.label + "\n\n" + p.input.View())
}
