package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/innovaplus/innova/internal/intent"
	"github.com/innovaplus/innova/internal/memory"
)

// DispatchBatchSize is the default number of handlers in flight at once.
const DispatchBatchSize = 2

// Invoker runs one capability.
type Invoker interface {
	Invoke(ctx context.Context, c memory.Capability, message string, live LiveContext) (Result, error)
}

// Recorder stores successful results. *memory.Store implements it.
type Recorder interface {
	RecordUsage(c memory.Capability, query string, result json.RawMessage, metadata map[string]any)
	RecordContent(kind memory.ContentKind, prompt string, result json.RawMessage, metadata map[string]any) string
}

// Indexer makes new content entries searchable. *memory.Recaller implements it.
type Indexer interface {
	Index(ctx context.Context, id string, kind memory.ContentKind, prompt string)
}

// Dispatched is one successful capability result.
type Dispatched struct {
	Capability memory.Capability `json:"capability"`
	EntryID    string            `json:"entry_id"`
	Result     Result            `json:"-"`
	Elapsed    time.Duration     `json:"elapsed"`
}

// Progress reports a finished handler, successful or not.
type Progress struct {
	Capability memory.Capability
	Err        error
	Elapsed    time.Duration
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// BatchSize caps concurrent handlers; DispatchBatchSize when <= 0.
	BatchSize int
	// Enabled is the user-level toggle per capability; all enabled when nil.
	Enabled func(memory.Capability) bool
	Indexer Indexer
	// OnProgress is called after each batch settles, once per handler, in
	// position order.
	OnProgress func(Progress)
	Logger     *zap.Logger
}

// Dispatcher runs the recommended capabilities in sequential batches and
// records every success.
type Dispatcher struct {
	invoker  Invoker
	recorder Recorder
	opts     DispatcherOptions
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(invoker Invoker, recorder Recorder, opts DispatcherOptions) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DispatchBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{invoker: invoker, recorder: recorder, opts: opts, logger: logger, now: time.Now}
}

// Schedule returns the capabilities that will run for rec, in canonical order.
func (d *Dispatcher) Schedule(rec intent.Recommendation) []memory.Capability {
	var out []memory.Capability
	for _, c := range rec.Enabled() {
		if d.opts.Enabled == nil || d.opts.Enabled(c) {
			out = append(out, c)
		}
	}
	return out
}

type slot struct {
	result  Result
	err     error
	elapsed time.Duration
}

// Dispatch runs the scheduled capabilities at most BatchSize at a time. Batch
// i+1 starts only after every handler of batch i has returned. Failures are
// logged and dropped; results keep schedule order.
func (d *Dispatcher) Dispatch(ctx context.Context, message string, rec intent.Recommendation, live LiveContext) []Dispatched {
	caps := d.Schedule(rec)
	out := make([]Dispatched, 0, len(caps))

	for start := 0; start < len(caps); start += d.opts.BatchSize {
		end := min(start+d.opts.BatchSize, len(caps))
		batch := caps[start:end]
		slots := make([]slot, len(batch))

		var g errgroup.Group
		for i, c := range batch {
			g.Go(func() error {
				began := d.now()
				r, err := d.invoke(ctx, c, message, live)
				slots[i] = slot{result: r, err: err, elapsed: d.now().Sub(began)}
				return nil
			})
		}
		_ = g.Wait()

		for i, c := range batch {
			s := slots[i]
			if d.opts.OnProgress != nil {
				d.opts.OnProgress(Progress{Capability: c, Err: s.err, Elapsed: s.elapsed})
			}
			if s.err != nil {
				d.logger.Warn("capability failed", zap.String("capability", string(c)), zap.Error(s.err))
				continue
			}
			out = append(out, d.record(ctx, c, message, rec, s))
		}
	}
	return out
}

// invoke runs one handler, converting a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, c memory.Capability, message string, live LiveContext) (r Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("%s: panic: %v", c, p)
		}
	}()
	r, err = d.invoker.Invoke(ctx, c, message, live)
	if err == nil && Empty(r) {
		err = fmt.Errorf("%s: %w", c, ErrEmptyResult)
	}
	return r, err
}

func (d *Dispatcher) record(ctx context.Context, c memory.Capability, message string, rec intent.Recommendation, s slot) Dispatched {
	dispatched := Dispatched{Capability: c, Result: s.result, Elapsed: s.elapsed}
	if d.recorder == nil {
		return dispatched
	}
	raw, err := Encode(s.result)
	if err != nil {
		d.logger.Warn("capability result not recorded", zap.String("capability", string(c)), zap.Error(err))
		return dispatched
	}
	secs := seconds(s.elapsed)
	d.recorder.RecordUsage(c, message, raw, map[string]any{
		memory.MetaProcessingTime: secs,
		"successful":              true,
	})
	dispatched.EntryID = d.recorder.RecordContent(s.result.Kind(), message, raw, map[string]any{
		memory.MetaProcessingTime: secs,
		memory.MetaPrimaryIntent:  rec.PrimaryIntent,
	})
	if d.opts.Indexer != nil && dispatched.EntryID != "" {
		d.opts.Indexer.Index(ctx, dispatched.EntryID, s.result.Kind(), message)
	}
	return dispatched
}
