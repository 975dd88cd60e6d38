package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"markestedt/keybridge/storage"
)

func newSessionsCmd(configPath *string) *cobra.Command {
	var limit int
	var days int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded capture sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			db, err := storage.Open(filepath.Dir(cfg.Path()))
			if err != nil {
				return err
			}
			defer db.Close()

			sessions, err := db.GetSessions(limit, 0)
			if err != nil {
				return err
			}
			overall, err := db.GetOverallStats(days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tDURATION\tLITERAL\tDELETE\tSUBMIT\tCANCEL\tDROPPED")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					s.StartedAt.Local().Format(time.DateTime),
					(time.Duration(s.DurationMs) * time.Millisecond).Round(time.Second),
					s.LiteralCount, s.DeleteCount, s.SubmitCount, s.CancelCount, s.DroppedCount,
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nLast %d days: %d sessions, %d commands, %d dropped\n",
				days, overall.Sessions, overall.TotalCommands, overall.DroppedCount)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sessions to show")
	cmd.Flags().IntVar(&days, "days", 7, "Window for the summary line")
	return cmd
}
