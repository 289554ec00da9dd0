package batch

import (
	"context"
	"errors"
)

// ErrPacerRequired is returned by Run in paced mode without a Pacer.
var ErrPacerRequired = errors.New("paced mode requires a pacer")

// Pacer gates sequential mode: Run calls Wait after each item except the
// last. done is the number of items settled so far.
type Pacer interface {
	Wait(ctx context.Context, done, total int) error
}

// ChannelPacer continues once per value received on its channel. A closed
// channel releases every later Wait immediately.
type ChannelPacer struct {
	signals <-chan struct{}
	// Prompt, when set, is called before blocking.
	Prompt func(done, total int)
}

// NewChannelPacer creates a pacer fed by signals.
func NewChannelPacer(signals <-chan struct{}) *ChannelPacer {
	return &ChannelPacer{signals: signals}
}

// Wait blocks until a signal arrives or ctx is done.
func (p *ChannelPacer) Wait(ctx context.Context, done, total int) error {
	if p.Prompt != nil {
		p.Prompt(done, total)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.signals:
		return nil
	}
}

// PacerFunc adapts a function to Pacer.
type PacerFunc func(ctx context.Context, done, total int) error

// Wait calls fn.
func (fn PacerFunc) Wait(ctx context.Context, done, total int) error {
	return fn(ctx, done, total)
}
