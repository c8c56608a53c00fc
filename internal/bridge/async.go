package bridge

import (
	"context"
)

// Dispatcher runs fn on the host's UI goroutine. A TUI would post a message
// to its event loop; a CLI can simply call fn.
type Dispatcher func(fn func())

// Immediate runs completions on the goroutine that finished the call.
func Immediate(fn func()) { fn() }

// Pending is the eventual result of an asynchronous call.
type Pending struct {
	done  chan struct{}
	reply string
	err   error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(reply string, err error) {
	p.reply, p.err = reply, err
	close(p.done)
}

// Done is closed once the call has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the call finishes or ctx ends. Giving up on ctx does not
// stop the call itself.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return p.reply, p.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Then hands the result to fn through dispatch once the call finishes.
// A nil dispatch behaves like Immediate. Then never blocks.
func (p *Pending) Then(dispatch Dispatcher, fn func(reply string, err error)) {
	if dispatch == nil {
		dispatch = Immediate
	}
	go func() {
		<-p.done
		dispatch(func() { fn(p.reply, p.err) })
	}()
}

// SendMessageAsync runs SendMessage on its own goroutine.
func (b *Bridge) SendMessageAsync(ctx context.Context, text, system string) *Pending {
	return b.async(ctx, text, system, true)
}

// SendMessageWithoutHistoryAsync runs SendMessageWithoutHistory on its own goroutine.
func (b *Bridge) SendMessageWithoutHistoryAsync(ctx context.Context, text, system string) *Pending {
	return b.async(ctx, text, system, false)
}

func (b *Bridge) async(ctx context.Context, text, system string, stateful bool) *Pending {
	x := b.begin(text, system, stateful)
	p := newPending()
	go func() {
		p.resolve(x.run(ctx))
	}()
	return p
}
