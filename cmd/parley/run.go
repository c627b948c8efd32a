package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/parley/internal/completion"
	"github.com/zulandar/parley/internal/config"
	"github.com/zulandar/parley/internal/dispatch"
	"github.com/zulandar/parley/internal/persona"
	"github.com/zulandar/parley/internal/sentiment"
	"github.com/zulandar/parley/internal/session"
	"github.com/zulandar/parley/internal/status"
	"github.com/zulandar/parley/internal/telegraph"
	"github.com/zulandar/parley/internal/telegraph/console"
	discordadapter "github.com/zulandar/parley/internal/telegraph/discord"
	slackadapter "github.com/zulandar/parley/internal/telegraph/slack"
	"github.com/zulandar/parley/internal/transcript"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the parley daemon",
		Long:  "Connects to the configured chat platform and answers messages until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to parley config file")
	return cmd
}

func runDaemon(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := buildApp(cfg, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return app.daemon.Run(ctx)
}

// app is a fully wired daemon plus whatever must be released after it stops.
type app struct {
	daemon  *dispatch.Daemon
	store   *session.Store
	queue   *dispatch.Queue
	closers []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Printf("parley: close: %v", err)
		}
	}
}

// buildApp wires the pipeline from cfg. in and out feed the console adapter
// and receive progress lines.
func buildApp(cfg *config.Config, in io.Reader, out io.Writer) (*app, error) {
	a := &app{}

	classifier, err := persona.NewClassifier(persona.ClassifierOpts{
		Threshold: cfg.Pipeline.KeywordThreshold,
	})
	if err != nil {
		return nil, err
	}
	scorer := sentiment.NewVader()

	store, err := session.NewStore(session.StoreOpts{
		Directive: func(text string) string {
			return classifier.SelectDirective(text, scorer.Score(text))
		},
		TTL:      cfg.Pipeline.SessionTTL(),
		Retain:   cfg.Pipeline.AmbientWindow(),
		Overflow: cfg.Pipeline.HistoryOverflow,
		Memory:   cfg.Pipeline.MemoryTurns,
	})
	if err != nil {
		return nil, err
	}
	a.store = store

	queue, err := dispatch.NewQueue(cfg.Pipeline.QueueCapacity)
	if err != nil {
		return nil, err
	}
	a.queue = queue

	adapter, err := createAdapter(cfg, in, out)
	if err != nil {
		return nil, err
	}

	client, err := completion.NewOpenAI(completion.OpenAIOpts{
		APIKey:  cfg.Completion.APIKey,
		BaseURL: cfg.Completion.BaseURL,
		Model:   cfg.Completion.Model,
		Timeout: cfg.Completion.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	botUserID := func() string {
		if bui, ok := adapter.(telegraph.BotUserIDer); ok {
			return bui.BotUserID()
		}
		return ""
	}
	filter, err := dispatch.NewFilter(dispatch.FilterOpts{
		Sessions:  store,
		Window:    cfg.Pipeline.AmbientWindow(),
		Roller:    dispatch.NewOddsRoller(cfg.Pipeline.Odds(), uint64(time.Now().UnixNano())),
		BotUserID: botUserID,
	})
	if err != nil {
		return nil, err
	}

	var background []dispatch.Runner
	var recorder dispatch.ExchangeRecorder
	if cfg.Transcript.Enabled {
		db, err := transcript.Connect(cfg.Transcript.ConnectOpts())
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		rec, err := transcript.NewRecorder(transcript.RecorderOpts{DB: db})
		if err != nil {
			a.close()
			return nil, err
		}
		recorder = rec
		pruner, err := transcript.NewPruner(transcript.PrunerOpts{
			Recorder:  rec,
			Schedule:  cfg.Transcript.PruneCron,
			Retention: cfg.Transcript.Retention(),
			Out:       out,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		background = append(background, pruner)
	}

	if cfg.Status.Enabled {
		srv, err := status.NewServer(status.ServerOpts{
			Sessions: store,
			Queue:    queue,
			Port:     cfg.Status.Port,
			Out:      out,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		background = append(background, srv)
	}

	worker, err := dispatch.NewWorker(dispatch.WorkerOpts{
		Queue:    queue,
		Store:    store,
		Client:   client,
		Adapter:  adapter,
		Pacing:   cfg.Pipeline.Pacing(),
		Recorder: recorder,
		Annotate: func(text string) (string, float64) {
			score := scorer.Score(text)
			return classifier.Classify(text, score).Rule, score
		},
		Out: out,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	daemon, err := dispatch.NewDaemon(dispatch.DaemonOpts{
		Adapter:       adapter,
		Filter:        filter,
		Queue:         queue,
		Worker:        worker,
		BotName:       cfg.Bot.Name,
		StatusChannel: cfg.Bot.StatusChannel,
		Background:    background,
		Out:           out,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.daemon = daemon
	return a, nil
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config, in io.Reader, out io.Writer) (telegraph.Adapter, error) {
	switch cfg.Bot.Platform {
	case config.PlatformDiscord:
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken: cfg.Discord.Token,
			TTS:      cfg.Discord.TTS,
		})
	case config.PlatformSlack:
		return slackadapter.New(slackadapter.AdapterOpts{
			AppToken: cfg.Slack.AppToken,
			BotToken: cfg.Slack.BotToken,
		})
	case config.PlatformConsole:
		return console.New(console.AdapterOpts{
			In:      in,
			Out:     out,
			BotName: cfg.Bot.Name,
		})
	default:
		return nil, fmt.Errorf("parley: unsupported platform %q", cfg.Bot.Platform)
	}
}
