package dispatch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/parley/internal/metrics"
	"github.com/zulandar/parley/internal/telegraph"
)

// OnlineNotice is posted to the status channel when the daemon starts.
const OnlineNotice = "parley online"

// Runner is a background service the daemon runs alongside the worker,
// such as the transcript pruner or the status server.
type Runner interface {
	Run(ctx context.Context) error
}

// Daemon is the main parley process. It connects to a chat platform via an
// Adapter, filters inbound messages into the Queue, and runs the Worker.
type Daemon struct {
	adapter       telegraph.Adapter
	filter        *Filter
	queue         *Queue
	worker        *Worker
	botName       string
	statusChannel string
	background    []Runner
	out           io.Writer

	handlers sync.WaitGroup
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Adapter       telegraph.Adapter // required
	Filter        *Filter           // required
	Queue         *Queue            // required
	Worker        *Worker           // required
	BotName       string            // used when the platform does not report one
	StatusChannel string            // optional; receives OnlineNotice
	Background    []Runner          // optional
	Out           io.Writer         // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("dispatch: adapter is required")
	}
	if opts.Filter == nil {
		return nil, fmt.Errorf("dispatch: filter is required")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("dispatch: queue is required")
	}
	if opts.Worker == nil {
		return nil, fmt.Errorf("dispatch: worker is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		adapter:       opts.Adapter,
		filter:        opts.Filter,
		queue:         opts.Queue,
		worker:        opts.Worker,
		botName:       opts.BotName,
		statusChannel: opts.StatusChannel,
		background:    opts.Background,
		out:           out,
	}, nil
}

// Run connects the adapter, starts the worker and pumps inbound messages
// until ctx is cancelled or the adapter closes its inbound channel. When
// input ends the queued messages are still answered; on cancellation they
// are abandoned.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "parley connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("dispatch: connect: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("dispatch: listen: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	workerDone := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(workerDone)
		d.worker.Run(runCtx)
	}()
	for _, r := range d.background {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			if err := r.Run(runCtx); err != nil {
				log.Printf("dispatch: background service: %v", err)
			}
		}(r)
	}

	fmt.Fprintf(d.out, "parley online as %s\n", d.currentBotName())

	if d.statusChannel != "" {
		if err := d.adapter.Send(ctx, telegraph.OutboundMessage{
			ChannelID: d.statusChannel,
			Text:      OnlineNotice,
		}); err != nil {
			log.Printf("dispatch: send online notice: %v", err)
		}
	}

	defer func() {
		cancel()
		d.handlers.Wait()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "parley shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				log.Printf("dispatch: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "parley stopped\n")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "parley inbound channel closed\n")
				d.finishQueued(ctx, workerDone)
				d.adapter.Close()
				return nil
			}
			d.handlers.Add(1)
			go func() {
				defer d.handlers.Done()
				d.handle(runCtx, msg)
			}()
		}
	}
}

// finishQueued lets the worker answer everything accepted before input
// ended. Cancelling ctx still abandons what is left.
func (d *Daemon) finishQueued(ctx context.Context, workerDone <-chan struct{}) {
	d.handlers.Wait()
	d.queue.Close()
	select {
	case <-workerDone:
	case <-ctx.Done():
	}
}

// handle runs the filter on one inbound message and enqueues it if
// accepted. Offer blocks while the queue is full.
func (d *Daemon) handle(ctx context.Context, msg telegraph.InboundMessage) {
	metrics.MessagesReceived.Inc()

	reason := d.filter.Evaluate(msg, d.currentBotName())
	if reason == ReasonNone {
		metrics.MessagesFiltered.Inc()
		return
	}

	received := msg.Timestamp
	if received.IsZero() {
		received = time.Now()
	}
	qm := QueuedMessage{
		ID:         uuid.NewString(),
		MessageID:  msg.MessageID,
		ChannelID:  msg.ChannelID,
		AuthorName: msg.UserName,
		FromBot:    msg.IsBot,
		Content:    msg.Text,
		Reason:     reason,
		ReceivedAt: received,
	}
	if err := d.queue.Offer(ctx, qm); err != nil {
		return
	}
	metrics.MessagesEnqueued.WithLabelValues(string(reason)).Inc()
	log.Printf("dispatch: queued %s from %s in %s (%s)", qm.ID, truncate(msg.UserName, 32), msg.ChannelID, reason)
}

// currentBotName prefers the name the platform reports.
func (d *Daemon) currentBotName() string {
	if bn, ok := d.adapter.(telegraph.BotNamer); ok {
		if name := bn.BotName(); name != "" {
			return name
		}
	}
	return d.botName
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
