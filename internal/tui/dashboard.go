package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MKhiriev/go-offline-sync/models"
)

const historyRows = 10

type dashboardModel struct {
	ctx     context.Context
	svc     SyncService
	info    models.AppBuildInfo
	refresh time.Duration

	spinner spinner.Model
	history table.Model
	help    help.Model

	stats  models.SyncStats
	health models.HealthReport
	loaded bool

	syncing  bool
	showInfo bool
	status   string
	errMsg   string
}

func newDashboardModel(ctx context.Context, svc SyncService, info models.AppBuildInfo, refresh time.Duration) dashboardModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	history := table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 19},
			{Title: "Status", Width: 15},
			{Title: "Synced", Width: 6},
			{Title: "Resolved", Width: 8},
			{Title: "Conflicts", Width: 9},
			{Title: "Failed", Width: 6},
			{Title: "Took", Width: 8},
		}),
		table.WithHeight(historyRows),
	)

	return dashboardModel{
		ctx:     ctx,
		svc:     svc,
		info:    info,
		refresh: refresh,
		spinner: s,
		history: history,
		help:    help.New(),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.cmdLoad(), m.cmdTick())
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(m.cmdLoad(), m.cmdTick())

	case snapshotMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.loaded = true
		m.stats = msg.stats
		m.health = msg.health
		m.history.SetRows(historyTableRows(msg.history))
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		if msg.err != nil {
			m.errMsg = humanizeSyncError(msg.err)
			m.status = ""
		} else {
			m.errMsg = ""
			m.status = fmt.Sprintf("Sync %s: %d synced, %d resolved, %d conflicts, %d failed",
				msg.result.Status, msg.result.Synced, msg.result.Resolved, msg.result.Conflicts, msg.result.Failed)
		}
		return m, m.cmdLoad()

	case cacheClearedMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.status = "Cache cleared"
		return m, m.cmdLoad()

	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m dashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.quit) {
		return m, tea.Quit
	}
	if m.showInfo {
		if key.Matches(msg, keys.esc) {
			m.showInfo = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.sync):
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.status = "Syncing..."
		m.errMsg = ""
		return m, tea.Batch(m.cmdSync(), m.spinner.Tick)
	case key.Matches(msg, keys.clearCache):
		return m, m.cmdClearCache()
	case key.Matches(msg, keys.info):
		m.showInfo = true
	}
	return m, nil
}

func (m dashboardModel) View() string {
	if m.showInfo {
		return appStyle.Render(renderBuildInfoWindow(m.info))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("OFFLINE SYNC"))
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString("Loading...\n")
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			sectionStyle.Render(m.renderState()),
			" ",
			sectionStyle.Render(m.renderQueues()),
			" ",
			sectionStyle.Render(m.renderCaches()),
		))
		b.WriteString("\n\n")
		b.WriteString(m.renderHealth())
		b.WriteString("\n\n")
		b.WriteString(m.history.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg))
	case m.syncing:
		b.WriteString(m.spinner.View() + " " + m.status)
	default:
		b.WriteString(m.status)
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(keys))

	return appStyle.Render(b.String())
}

func (m dashboardModel) renderState() string {
	online := warnStyle.Render("offline")
	if m.stats.Online {
		online = okStyle.Render("online")
	}

	lastSync := "-"
	if m.stats.LastSync != nil {
		lastSync = formatTime(*m.stats.LastSync)
	}

	return strings.Join([]string{
		"Network:   " + online,
		"State:     " + string(m.stats.State),
		"Last sync: " + lastSync,
		"Last run:  " + valueOrNA(string(m.stats.LastStatus)),
		"Next sync: " + formatTime(m.stats.NextSync),
	}, "\n")
}

func (m dashboardModel) renderQueues() string {
	tx, ev := m.stats.Transactions, m.stats.Events
	return strings.Join([]string{
		"             tx   events",
		fmt.Sprintf("pending   %5d  %7d", tx.Pending, ev.Pending),
		fmt.Sprintf("synced    %5d  %7d", tx.Synced, ev.Synced),
		fmt.Sprintf("conflict  %5d  %7s", tx.Conflict, "-"),
		fmt.Sprintf("failed    %5d  %7d", tx.Failed, ev.Failed),
	}, "\n")
}

func (m dashboardModel) renderCaches() string {
	c, media := m.stats.Cache, m.stats.Media
	return strings.Join([]string{
		fmt.Sprintf("Entities: %d (%d deleted)", c.Entries, c.Tombstones),
		fmt.Sprintf("  %s / %s", formatBytes(c.Bytes), formatBytes(c.MaxBytes)),
		fmt.Sprintf("Media:    %d", media.Entries),
		fmt.Sprintf("  %s / %s", formatBytes(media.Bytes), formatBytes(media.MaxBytes)),
	}, "\n")
}

func (m dashboardModel) renderHealth() string {
	if m.health.Healthy || len(m.health.Issues) == 0 {
		return okStyle.Render("Healthy")
	}
	lines := make([]string, 0, len(m.health.Issues))
	for _, issue := range m.health.Issues {
		lines = append(lines, warnStyle.Render("! "+issue))
	}
	return strings.Join(lines, "\n")
}

func historyTableRows(records []models.SyncHistoryRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, table.Row{
			formatTime(r.Timestamp),
			fitText(string(r.Status), 15),
			strconv.Itoa(r.Synced),
			strconv.Itoa(r.Resolved),
			strconv.Itoa(r.Conflicts),
			strconv.Itoa(r.Failed),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	return rows
}

func (m dashboardModel) cmdTick() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m dashboardModel) cmdLoad() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.svc.Stats(m.ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		health, err := m.svc.Health(m.ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		history, err := m.svc.SyncHistory(m.ctx, historyRows)
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{stats: stats, health: health, history: history}
	}
}

// cmdSync forces a cycle: the operator asked for it even if the monitor
// still reports offline.
func (m dashboardModel) cmdSync() tea.Cmd {
	return func() tea.Msg {
		result, err := m.svc.PerformSync(m.ctx, true)
		return syncDoneMsg{result: result, err: err}
	}
}

func (m dashboardModel) cmdClearCache() tea.Cmd {
	return func() tea.Msg {
		return cacheClearedMsg{err: m.svc.ClearCache(m.ctx)}
	}
}
