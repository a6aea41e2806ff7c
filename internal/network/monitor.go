// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package network observes connectivity and notifies subscribers when the
// device goes online or offline.
package network

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Monitor publishes debounced connectivity transitions.
//
// An offline transition is published as soon as it is reported. An online
// transition is published only after the link has stayed up for the
// debounce window, so a flapping link produces no online events. Changes of
// connection type or strength without a flip are published as
// status_change.
//
// Events reach listeners in the order the transitions happened. Listeners
// must not call Report.
type Monitor struct {
	// pubMu is held from a transition until its event is delivered.
	pubMu     sync.Mutex
	mu        sync.Mutex
	current   models.NetworkStatus
	online    bool
	upSince   time.Time
	upTimer   *time.Timer
	upAttempt uint64

	listeners map[uint64]Listener
	nextID    uint64

	prober   Prober
	interval time.Duration
	debounce time.Duration

	now    func() time.Time
	logger *logger.Logger
}

// NewMonitor returns a monitor that starts offline. prober may be nil when
// statuses are only pushed through Report.
func NewMonitor(prober Prober, interval, debounce time.Duration, log *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		current:   models.NetworkStatus{Type: models.ConnectionNone},
		listeners: make(map[uint64]Listener),
		prober:    prober,
		interval:  interval,
		debounce:  debounce,
		now:       time.Now,
		logger:    log.WithComponent("network"),
	}
}

// Subscribe registers fn and returns the function that unregisters it.
func (m *Monitor) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// IsOnline reports the published connectivity.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Status returns the latest reading. Online is the published state, so it
// stays false while an online transition is being debounced.
func (m *Monitor) Status() models.NetworkStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.current
	s.Online = m.online
	return s
}

// Report feeds a connectivity reading into the monitor.
func (m *Monitor) Report(status models.NetworkStatus) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	event, ok := m.reportLocked(status)
	m.mu.Unlock()

	if ok {
		m.publish(event)
	}
}

func (m *Monitor) reportLocked(status models.NetworkStatus) (models.NetworkEvent, bool) {
	previous := m.current
	m.current = status
	now := m.now()

	if !status.Online {
		m.cancelUpLocked()
		if !m.online {
			return models.NetworkEvent{}, false
		}
		m.online = false
		return models.NetworkEvent{Kind: models.NetworkOffline, Status: status, At: now}, true
	}

	if m.online {
		if previous.Type == status.Type && previous.Strength == status.Strength {
			return models.NetworkEvent{}, false
		}
		return models.NetworkEvent{Kind: models.NetworkStatusChange, Status: status, At: now}, true
	}

	// offline, link reported up
	if m.upSince.IsZero() {
		m.upSince = now
		if m.debounce > 0 {
			m.upAttempt++
			attempt := m.upAttempt
			m.upTimer = time.AfterFunc(m.debounce, func() { m.confirmOnline(attempt) })
			return models.NetworkEvent{}, false
		}
	}
	if now.Sub(m.upSince) < m.debounce {
		return models.NetworkEvent{}, false
	}
	return m.goOnlineLocked(now), true
}

func (m *Monitor) confirmOnline(attempt uint64) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	if attempt != m.upAttempt || m.upSince.IsZero() || m.online {
		m.mu.Unlock()
		return
	}
	event := m.goOnlineLocked(m.now())
	m.mu.Unlock()

	m.publish(event)
}

func (m *Monitor) goOnlineLocked(now time.Time) models.NetworkEvent {
	m.cancelUpLocked()
	m.online = true
	status := m.current
	status.Online = true
	return models.NetworkEvent{Kind: models.NetworkOnline, Status: status, At: now}
}

func (m *Monitor) cancelUpLocked() {
	if m.upTimer != nil {
		m.upTimer.Stop()
		m.upTimer = nil
	}
	m.upAttempt++
	m.upSince = time.Time{}
}

func (m *Monitor) publish(event models.NetworkEvent) {
	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	m.logger.Info().
		Str("func", "Monitor.publish").
		Str("event", string(event.Kind)).
		Str("type", string(event.Status.Type)).
		Int("strength", event.Status.Strength).
		Msg("network event")

	for _, l := range listeners {
		l(event)
	}
}

// Run probes connectivity every interval until ctx is cancelled. The first
// probe happens immediately.
func (m *Monitor) Run(ctx context.Context) error {
	if m.prober == nil {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.probeOnce(ctx)

		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.cancelUpLocked()
			m.mu.Unlock()
			return nil
		case <-ticker.C:
		}
	}
}

// Refresh probes once, reports the reading and returns the published
// status. It lets one-shot callers skip the Run loop.
func (m *Monitor) Refresh(ctx context.Context) models.NetworkStatus {
	if m.prober != nil {
		m.probeOnce(ctx)
	}
	return m.Status()
}

func (m *Monitor) probeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	status, err := m.prober.Probe(probeCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Debug().Err(err).Str("func", "Monitor.probeOnce").Msg("probe failed")
		status = models.NetworkStatus{Online: false, Type: models.ConnectionNone}
	}
	m.Report(status)
}
