package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-offline-sync/models"
)

func newConflictsCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List transactions waiting for a conflict decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), open, opts, func(s *Session) error {
				conflicts := s.Sync.Conflicts()

				f := newFormatter(opts, cmd.OutOrStdout())
				if f.json() {
					return f.writeJSON(conflicts)
				}
				rows := [][]string{{"ID", "KIND", "CONFLICT", "RETRIES", "DETECTED", "ERROR"}}
				for _, tx := range conflicts {
					kind, detected := "", ""
					if tx.Conflict != nil {
						kind = string(tx.Conflict.Kind)
						detected = formatWhen(tx.Conflict.DetectedAt)
					}
					rows = append(rows, []string{
						tx.ID,
						string(tx.Kind),
						kind,
						strconv.Itoa(tx.RetryCount),
						detected,
						tx.LastError,
					})
				}
				return f.table(rows)
			})
		},
	}
}

func newResolveCommand(opts *RootOptions, open Opener) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "resolve <tx-id>",
		Short: "Resolve a conflicted transaction",
		Long: `Resolve a conflicted transaction with one of the strategies
server_wins, client_wins, merge or manual. Monetary conflicts are always
settled by the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), open, opts, func(s *Session) error {
				res, err := s.Sync.ResolveConflict(cmd.Context(), args[0], models.Strategy(strategy))
				if err != nil {
					return err
				}

				f := newFormatter(opts, cmd.OutOrStdout())
				if f.json() {
					return f.writeJSON(res)
				}
				if len(res.Data) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: left for manual resolution (%s)\n", args[0], res.Strategy)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: resolved with %s\n", args[0], res.Strategy)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", string(models.StrategyServerWins), "resolution strategy")
	return cmd
}
