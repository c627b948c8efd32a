package transcript

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether expr is a valid 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("transcript: invalid cron %q: %w", expr, err)
	}
	return nil
}

// Pruner deletes old exchanges on a cron schedule.
type Pruner struct {
	recorder  *Recorder
	schedule  string
	retention time.Duration
	out       io.Writer
}

// PrunerOpts holds parameters for creating a Pruner.
type PrunerOpts struct {
	Recorder  *Recorder     // required
	Schedule  string        // 5-field cron expression; required
	Retention time.Duration // required, > 0
	Out       io.Writer     // defaults to os.Stdout
}

// NewPruner creates a Pruner.
func NewPruner(opts PrunerOpts) (*Pruner, error) {
	if opts.Recorder == nil {
		return nil, fmt.Errorf("transcript: recorder is required")
	}
	if opts.Retention <= 0 {
		return nil, fmt.Errorf("transcript: retention must be positive")
	}
	if err := ValidateSchedule(opts.Schedule); err != nil {
		return nil, err
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Pruner{
		recorder:  opts.Recorder,
		schedule:  opts.Schedule,
		retention: opts.Retention,
		out:       out,
	}, nil
}

// Run schedules pruning and blocks until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(cronParser))
	if _, err := c.AddFunc(p.schedule, func() { p.PruneOnce(ctx) }); err != nil {
		return fmt.Errorf("transcript: schedule prune: %w", err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// PruneOnce runs a single prune pass and reports what it removed.
func (p *Pruner) PruneOnce(ctx context.Context) int64 {
	n, err := p.recorder.Prune(ctx, p.retention)
	if err != nil {
		log.Printf("transcript: prune: %v", err)
		return 0
	}
	if n > 0 {
		fmt.Fprintf(p.out, "Pruned %d transcript rows older than %v\n", n, p.retention)
	}
	return n
}
