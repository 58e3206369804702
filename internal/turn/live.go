package turn

import (
	"context"
	"time"

	"github.com/innovaplus/innova/internal/capability"
)

// LiveProvider supplies real-time data offered to the model for one turn.
type LiveProvider interface {
	Live(ctx context.Context) capability.LiveContext
}

// LiveFunc adapts a function to LiveProvider.
type LiveFunc func(ctx context.Context) capability.LiveContext

func (f LiveFunc) Live(ctx context.Context) capability.LiveContext { return f(ctx) }

// ClockLive reports the current date, time and reply language.
type ClockLive struct {
	Language string
	Now      func() time.Time
}

func (c ClockLive) Live(context.Context) capability.LiveContext {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	live := capability.LiveContext{
		"date":     t.Format("2006-01-02"),
		"time":     t.Format("15:04"),
		"weekday":  t.Weekday().String(),
		"timezone": t.Location().String(),
	}
	if c.Language != "" {
		live["language"] = c.Language
	}
	return live
}
