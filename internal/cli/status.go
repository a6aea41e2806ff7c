package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-offline-sync/models"
)

type statusReport struct {
	Stats  models.SyncStats    `json:"stats"`
	Health models.HealthReport `json:"health"`
}

func newStatusCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue, cache and health status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), open, opts, func(s *Session) error {
				var report statusReport
				var err error
				if report.Stats, err = s.Sync.Stats(cmd.Context()); err != nil {
					return err
				}
				if report.Health, err = s.Sync.Health(cmd.Context()); err != nil {
					return err
				}
				return writeStatus(newFormatter(opts, cmd.OutOrStdout()), report)
			})
		},
	}
}

func writeStatus(f *formatter, r statusReport) error {
	if f.json() {
		return f.writeJSON(r)
	}

	lastSync := "never"
	if r.Stats.LastSync != nil {
		lastSync = formatWhen(*r.Stats.LastSync) + " (" + string(r.Stats.LastStatus) + ")"
	}
	health := "ok"
	if !r.Health.Healthy {
		health = strconv.Itoa(len(r.Health.Issues)) + " issue(s)"
	}

	rows := [][]string{
		{"FIELD", "VALUE"},
		{"state", string(r.Stats.State)},
		{"online", strconv.FormatBool(r.Stats.Online)},
		{"last sync", lastSync},
		{"next sync", formatWhen(r.Stats.NextSync)},
		{"transactions", queueCounts(r.Stats.Transactions)},
		{"events", queueCounts(r.Stats.Events)},
		{"entity cache", cacheUsage(r.Stats.Cache)},
		{"media cache", cacheUsage(r.Stats.Media)},
		{"health", health},
	}
	for _, issue := range r.Health.Issues {
		rows = append(rows, []string{"", "- " + issue})
	}
	return f.table(rows)
}

func queueCounts(c models.QueueCounts) string {
	return fmt.Sprintf("pending=%d synced=%d conflict=%d failed=%d", c.Pending, c.Synced, c.Conflict, c.Failed)
}

func cacheUsage(c models.CacheStats) string {
	return fmt.Sprintf("%d entries, %d/%d bytes", c.Entries, c.Bytes, c.MaxBytes)
}
