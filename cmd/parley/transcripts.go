package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/parley/internal/config"
	"github.com/zulandar/parley/internal/transcript"
	"gorm.io/gorm"
)

// connectTranscripts opens the transcript database. Tests override it.
var connectTranscripts = func(cfg *config.Config) (*gorm.DB, error) {
	return transcript.Connect(cfg.Transcript.ConnectOpts())
}

func newTranscriptsCmd() *cobra.Command {
	var (
		configPath string
		channel    string
		outcome    string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "List recent exchanges",
		Long:  "Lists the newest exchanges from the transcript database, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := connectTranscripts(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			return runTranscripts(cmd, db, transcript.Query{ChannelID: channel, Outcome: outcome, Limit: limit})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to parley config file")
	cmd.Flags().StringVar(&channel, "channel", "", "only this channel")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only this outcome (replied, failed, send_failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", transcript.DefaultLimit, "maximum rows to show")
	return cmd
}

func runTranscripts(cmd *cobra.Command, db *gorm.DB, q transcript.Query) error {
	rec, err := transcript.NewRecorder(transcript.RecorderOpts{DB: db})
	if err != nil {
		return err
	}
	rows, err := rec.Recent(context.Background(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No exchanges found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCHANNEL\tAUTHOR\tPERSONA\tOUTCOME\tLATENCY\tMESSAGE")
	for _, ex := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dms\t%s\n",
			ex.CreatedAt.Format("2006-01-02 15:04:05"),
			ex.ChannelID,
			ex.AuthorName,
			ex.Persona,
			ex.Outcome,
			ex.LatencyMS,
			truncate(ex.Content, 60),
		)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
