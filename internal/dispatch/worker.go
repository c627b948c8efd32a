package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/zulandar/parley/internal/completion"
	"github.com/zulandar/parley/internal/metrics"
	"github.com/zulandar/parley/internal/session"
	"github.com/zulandar/parley/internal/telegraph"
	"github.com/zulandar/parley/internal/transcript"
	"golang.org/x/time/rate"
)

// DefaultPacing is the minimum spacing between completion calls.
const DefaultPacing = 3 * time.Second

// ExchangeRecorder stores processed exchanges. *transcript.Recorder
// implements it.
type ExchangeRecorder interface {
	Record(ctx context.Context, ex transcript.Exchange) error
}

// AnnotateFunc describes a message for the transcript: the persona rule it
// would select and its sentiment score.
type AnnotateFunc func(text string) (persona string, score float64)

// Worker drains the queue one message at a time.
type Worker struct {
	queue    *Queue
	store    *session.Store
	client   completion.Client
	adapter  telegraph.Adapter
	limiter  *rate.Limiter
	recorder ExchangeRecorder
	annotate AnnotateFunc
	clock    clockwork.Clock
	out      io.Writer
}

// WorkerOpts holds parameters for creating a Worker.
type WorkerOpts struct {
	Queue    *Queue            // required
	Store    *session.Store    // required
	Client   completion.Client // required
	Adapter  telegraph.Adapter // required
	Pacing   time.Duration     // spacing between completion calls; 0 uses DefaultPacing, < 0 disables
	Recorder ExchangeRecorder  // optional
	Annotate AnnotateFunc      // optional
	Clock    clockwork.Clock   // defaults to the real clock
	Out      io.Writer         // defaults to os.Stdout
}

// NewWorker creates a Worker.
func NewWorker(opts WorkerOpts) (*Worker, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("dispatch: queue is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("dispatch: session store is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("dispatch: completion client is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("dispatch: adapter is required")
	}

	pacing := opts.Pacing
	if pacing == 0 {
		pacing = DefaultPacing
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(pacing), 1)
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &Worker{
		queue:    opts.Queue,
		store:    opts.Store,
		client:   opts.Client,
		adapter:  opts.Adapter,
		limiter:  limiter,
		recorder: opts.Recorder,
		annotate: opts.Annotate,
		clock:    clock,
		out:      out,
	}, nil
}

// Run processes queued messages until ctx is cancelled or the queue is
// closed and drained. A failed message never stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		msg, err := w.queue.Next(ctx)
		if err != nil {
			return nil
		}
		w.Process(ctx, msg)
	}
}

// Process handles one message end to end and returns its outcome. Nothing
// is retried: a failed completion trims the channel's history and the
// message is dropped.
func (w *Worker) Process(ctx context.Context, msg QueuedMessage) string {
	text := msg.Outbound()

	release := w.store.Guard(msg.ChannelID)
	defer release()

	sess := w.store.GetOrRefresh(msg.ChannelID, text)

	if err := w.limiter.Wait(ctx); err != nil {
		// Only cancellation lands here; the message is abandoned like the rest of the queue.
		return transcript.OutcomeFailed
	}

	if typer, ok := w.adapter.(telegraph.Typer); ok {
		if err := typer.Typing(ctx, msg.ChannelID); err != nil {
			log.Printf("dispatch: typing in %s: %v", msg.ChannelID, err)
		}
	}

	start := w.clock.Now()
	reply, err := w.client.Complete(ctx, sess.History, text)
	latency := w.clock.Since(start)
	metrics.CompletionDuration.Observe(latency.Seconds())

	ex := transcript.Exchange{
		CorrelationID: msg.ID,
		MessageID:     msg.MessageID,
		ChannelID:     msg.ChannelID,
		AuthorName:    msg.AuthorName,
		FromBot:       msg.FromBot,
		Content:       msg.Content,
		Reason:        string(msg.Reason),
		LatencyMS:     latency.Milliseconds(),
		ReceivedAt:    msg.ReceivedAt,
	}

	if err != nil {
		kind := completion.KindOf(err)
		log.Printf("dispatch: complete %s (%s): %v", msg.ChannelID, kind, err)
		metrics.Completions.WithLabelValues(kind.String()).Inc()
		w.store.ForceTrim(msg.ChannelID)
		ex.Outcome = transcript.OutcomeFailed
		ex.Error = err.Error()
		w.record(ctx, ex)
		return ex.Outcome
	}
	metrics.Completions.WithLabelValues("ok").Inc()

	if err := w.store.Commit(msg.ChannelID, session.Turn{Speaker: session.SpeakerUser, Text: text}, reply); err != nil {
		log.Printf("dispatch: commit %s: %v", msg.ChannelID, err)
	}
	ex.Reply = reply
	ex.Outcome = transcript.OutcomeReplied

	if err := w.send(ctx, msg.ChannelID, reply); err != nil {
		log.Printf("dispatch: send to %s: %v", msg.ChannelID, err)
		ex.Outcome = transcript.OutcomeSendFailed
		ex.Error = err.Error()
	} else {
		fmt.Fprintf(w.out, "Replied in %s to %s (%dms)\n", msg.ChannelID, msg.AuthorName, ex.LatencyMS)
	}

	w.record(ctx, ex)
	return ex.Outcome
}

// send delivers reply in chunks sized to the adapter's limit, in order.
// Remaining chunks are dropped after the first failure.
func (w *Worker) send(ctx context.Context, channelID, reply string) error {
	if reply == "" {
		return nil
	}
	limit := DefaultMessageLimit
	if ml, ok := w.adapter.(telegraph.MessageLimiter); ok && ml.MessageLimit() > 0 {
		limit = ml.MessageLimit()
	}
	for _, chunk := range chunkMessage(reply, limit) {
		if err := w.adapter.Send(ctx, telegraph.OutboundMessage{ChannelID: channelID, Text: chunk}); err != nil {
			return err
		}
		metrics.RepliesSent.Inc()
	}
	return nil
}

func (w *Worker) record(ctx context.Context, ex transcript.Exchange) {
	if w.recorder == nil {
		return
	}
	if w.annotate != nil {
		ex.Persona, ex.Sentiment = w.annotate(ex.AuthorName + ": " + ex.Content)
	}
	if err := w.recorder.Record(ctx, ex); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("dispatch: record exchange: %v", err)
	}
}
