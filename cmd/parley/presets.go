package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/parley/internal/persona"
)

func newPresetsCmd() *cobra.Command {
	var showTones bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List persona presets",
		Long:  "Lists the preset rules in selection order with their keywords. Ties go to the earlier rule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tKEYWORDS")
			for i, r := range persona.Presets {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, r.Name, strings.Join(r.Keywords, ", "))
			}
			w.Flush()

			if showTones {
				fmt.Fprintln(out)
				w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SCORE\tTONE")
				for _, a := range persona.Anchors {
					fmt.Fprintf(w, "%+.2f\t%s\n", a.Score, a.Tone)
				}
				w.Flush()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTones, "tones", false, "also list the sentiment tone anchors")
	return cmd
}
