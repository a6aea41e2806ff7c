package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *RootOptions, open Opener) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync cycles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), open, opts, func(s *Session) error {
				records, err := s.Sync.SyncHistory(cmd.Context(), limit)
				if err != nil {
					return err
				}

				f := newFormatter(opts, cmd.OutOrStdout())
				if f.json() {
					return f.writeJSON(records)
				}
				rows := [][]string{{"TIME", "STATUS", "SYNCED", "CONFLICTS", "FAILED", "DURATION", "ERROR"}}
				for _, r := range records {
					rows = append(rows, []string{
						formatWhen(r.Timestamp),
						string(r.Status),
						strconv.Itoa(r.Synced),
						strconv.Itoa(r.Conflicts),
						strconv.Itoa(r.Failed),
						r.Duration.String(),
						r.Error,
					})
				}
				return f.table(rows)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")
	return cmd
}
