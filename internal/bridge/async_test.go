package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageAsync_DoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	fb := &fakeBackend{respond: func(req backend.Request) (string, error) {
		<-release
		return "done", nil
	}}
	b := New(fb)

	start := time.Now()
	p := b.SendMessageAsync(context.Background(), "hello", "")
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	select {
	case <-p.Done():
		t.Fatal("call finished before the backend answered")
	default:
	}

	close(release)
	reply, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
	assert.Len(t, b.History(), 2)
}

func TestSendMessageWithoutHistoryAsync(t *testing.T) {
	b := New(&fakeBackend{})

	reply, err := b.SendMessageWithoutHistoryAsync(context.Background(), "hello", "").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reply: hello", reply)
	assert.Empty(t, b.History())
}

func TestPending_WaitContext(t *testing.T) {
	release := make(chan struct{})
	b := New(&fakeBackend{respond: func(req backend.Request) (string, error) {
		<-release
		return "late", nil
	}})

	p := b.SendMessageAsync(context.Background(), "hello", "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-p.Done()
}

// Then must route the completion through the dispatcher, as a UI toolkit
// would route it onto its own goroutine.
func TestPending_ThenUsesDispatcher(t *testing.T) {
	uiQueue := make(chan func(), 1)
	dispatch := func(fn func()) { uiQueue <- fn }

	b := New(&fakeBackend{})

	type result struct {
		reply string
		err   error
	}
	got := make(chan result, 1)

	b.SendMessageAsync(context.Background(), "hello", "").Then(dispatch, func(reply string, err error) {
		got <- result{reply, err}
	})

	var fn func()
	select {
	case fn = <-uiQueue:
	case <-time.After(time.Second):
		t.Fatal("completion was never dispatched")
	}

	select {
	case <-got:
		t.Fatal("completion ran before the dispatcher executed it")
	default:
	}

	fn()
	r := <-got
	require.NoError(t, r.err)
	assert.Equal(t, "reply: hello", r.reply)
}

func TestPending_ThenImmediateOnFailure(t *testing.T) {
	b := New(&fakeBackend{respond: func(backend.Request) (string, error) {
		return "", backend.ErrEmptyResponse
	}})

	errCh := make(chan error, 1)
	b.SendMessageAsync(context.Background(), "hello", "").Then(nil, func(_ string, err error) {
		errCh <- err
	})

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, backend.ErrEmptyResponse))
	case <-time.After(time.Second):
		t.Fatal("completion never ran")
	}
	assert.Empty(t, b.History())
}

func TestSendMessageAsync_ManyInFlight(t *testing.T) {
	b := New(&fakeBackend{respond: func(req backend.Request) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	}})

	pending := make([]*Pending, 20)
	for i := range pending {
		pending[i] = b.SendMessageAsync(context.Background(), "hi", "")
	}
	for _, p := range pending {
		_, err := p.Wait(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, b.History(), 40)
}
