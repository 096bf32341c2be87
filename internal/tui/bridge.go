package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Bridge implements selection.UI on top of a running program. Its methods
// must not be called from the program's own Update loop.
type Bridge struct {
	send func(tea.Msg)
}

// NewBridge returns a Bridge delivering to p.
func NewBridge(p *tea.Program) *Bridge {
	return &Bridge{send: p.Send}
}

// RequestTitle opens the prompt and blocks until it is answered or ctx ends.
func (b *Bridge) RequestTitle(ctx context.Context, prompt string) (string, bool, error) {
	reply := make(chan titleReply, 1)
	b.send(promptMsg{label: prompt, reply: reply})

	select {
	case r := <-reply:
		return r.title, r.ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// Notify queues a notice; the user dismisses it with any key.
func (b *Bridge) Notify(message string) {
	b.send(noticeMsg{text: message})
}

// Changed requests a redraw; wire it to calendar.OnChange.
func (b *Bridge) Changed() {
	b.send(changedMsg{})
}
