package convo

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

type doMsg struct {
	fn func(*Controller) tea.Cmd
}

// Runner drives a Controller without a terminal: commands run on their own
// goroutines and every result is applied on the Run goroutine, in the order
// it arrives.
type Runner struct {
	ctrl    *Controller
	msgs    chan tea.Msg
	observe func(tea.Msg)
}

// NewRunner returns a runner for c. observe, when set, sees every message
// after the controller has applied it.
func NewRunner(c *Controller, observe func(tea.Msg)) *Runner {
	return &Runner{ctrl: c, msgs: make(chan tea.Msg, 64), observe: observe}
}

// Do schedules fn to run on the loop. It must not be called from observe.
func (r *Runner) Do(fn func(*Controller) tea.Cmd) {
	r.msgs <- doMsg{fn: fn}
}

// Run processes messages until ctx is done or the transport closes.
func (r *Runner) Run(ctx context.Context, cmds ...tea.Cmd) error {
	for _, cmd := range cmds {
		r.exec(ctx, cmd)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-r.msgs:
			switch msg := msg.(type) {
			case tea.BatchMsg:
				for _, cmd := range msg {
					r.exec(ctx, cmd)
				}
				continue
			case doMsg:
				r.exec(ctx, msg.fn(r.ctrl))
				continue
			}
			next := r.ctrl.Update(msg)
			if r.observe != nil {
				r.observe(msg)
			}
			if _, closed := msg.(TransportClosedMsg); closed {
				return nil
			}
			r.exec(ctx, next)
		}
	}
}

func (r *Runner) exec(ctx context.Context, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if msg == nil {
			return
		}
		select {
		case r.msgs <- msg:
		case <-ctx.Done():
		}
	}()
}
