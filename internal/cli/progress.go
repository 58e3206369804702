package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/innovaplus/innova/internal/capability"
)

// turnProgress shows a spinner while a turn runs and reports each finished
// capability. The dispatcher calls Report from its own goroutine.
type turnProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
	out io.Writer
}

func newTurnProgress() *turnProgress {
	return &turnProgress{out: os.Stderr}
}

// Start begins a spinner for one turn. It does nothing when stderr is not a terminal.
func (p *turnProgress) Start(description string) {
	if !stderrIsTerminal() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("  "+description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionClearOnFinish(),
	)
}

// Report records a finished capability.
func (p *turnProgress) Report(pr capability.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	status := "done"
	if pr.Err != nil {
		status = "failed"
	}
	p.bar.Describe(fmt.Sprintf("  %s %s (%.1fs)", pr.Capability, status, pr.Elapsed.Seconds()))
	_ = p.bar.Add(1)
}

// Stop clears the spinner.
func (p *turnProgress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
