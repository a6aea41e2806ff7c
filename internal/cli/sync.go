package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-offline-sync/models"
)

// ErrBackendUnreachable is returned by sync when the probe fails and --force
// was not given.
var ErrBackendUnreachable = errors.New("backend is unreachable, use --force to try anyway")

type syncReport struct {
	Status     models.SyncStatus `json:"status"`
	Synced     int               `json:"synced"`
	Resolved   int               `json:"resolved"`
	Conflicts  int               `json:"conflicts"`
	Failed     int               `json:"failed"`
	EventsSent int               `json:"events_sent"`
	Backlog    bool              `json:"backlog"`
	Duration   string            `json:"duration"`
	Errors     []string          `json:"errors,omitempty"`
}

func newSyncReport(r models.SyncResult) syncReport {
	report := syncReport{
		Status:     r.Status,
		Synced:     r.Synced,
		Resolved:   r.Resolved,
		Conflicts:  r.Conflicts,
		Failed:     r.Failed,
		EventsSent: r.EventsSent,
		Backlog:    r.Backlog,
		Duration:   r.Duration.String(),
	}
	for _, err := range r.Errors {
		report.Errors = append(report.Errors, err.Error())
	}
	return report
}

func newSyncCommand(opts *RootOptions, open Opener) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, open, opts, func(s *Session) error {
				if !force && !s.Probe(ctx).Online {
					return ErrBackendUnreachable
				}

				result, syncErr := s.Sync.PerformSync(ctx, force)
				if result.Status == "" {
					return syncErr
				}
				if err := writeSyncReport(newFormatter(opts, cmd.OutOrStdout()), newSyncReport(result)); err != nil {
					return err
				}
				return syncErr
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "sync even when the backend probe fails")
	return cmd
}

func writeSyncReport(f *formatter, report syncReport) error {
	if f.json() {
		return f.writeJSON(report)
	}

	rows := [][]string{
		{"STATUS", "SYNCED", "RESOLVED", "CONFLICTS", "FAILED", "EVENTS", "DURATION"},
		{
			string(report.Status),
			strconv.Itoa(report.Synced),
			strconv.Itoa(report.Resolved),
			strconv.Itoa(report.Conflicts),
			strconv.Itoa(report.Failed),
			strconv.Itoa(report.EventsSent),
			report.Duration,
		},
	}
	if err := f.table(rows); err != nil {
		return err
	}
	for _, e := range report.Errors {
		fmt.Fprintln(f.w, "error:", e)
	}
	if report.Backlog {
		fmt.Fprintln(f.w, "more work is pending, run sync again")
	}
	return nil
}
