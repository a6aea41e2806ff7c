// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

func blockUntilDone(started *atomic.Int32) Worker {
	return WorkerFunc(func(ctx context.Context) error {
		started.Add(1)
		<-ctx.Done()
		return ctx.Err()
	})
}

func TestWorkers_Run_StopsOnCancel(t *testing.T) {
	var started atomic.Int32
	ws := NewWorkers(blockUntilDone(&started), blockUntilDone(&started))
	ws.Add(blockUntilDone(&started))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ws.Run(ctx) }()

	require.Eventually(t, func() bool { return started.Load() == 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestWorkers_Run_FailureCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32

	ws := NewWorkers(
		blockUntilDone(&started),
		WorkerFunc(func(context.Context) error { return boom }),
	)

	assert.ErrorIs(t, ws.Run(context.Background()), boom)
}

func TestWorkers_Run_Empty(t *testing.T) {
	assert.NoError(t, (&Workers{}).Run(context.Background()))
}

func TestLifecycle(t *testing.T) {
	var started, stopped atomic.Bool
	w := Lifecycle(func(context.Context) error {
		started.Store(true)
		return nil
	}, func() { stopped.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, w.Run(ctx))
	assert.True(t, started.Load())
	assert.True(t, stopped.Load())
}

func TestLifecycle_StartFails(t *testing.T) {
	boom := errors.New("no db")
	var stopped atomic.Bool
	w := Lifecycle(func(context.Context) error { return boom }, func() { stopped.Store(true) })

	assert.ErrorIs(t, w.Run(context.Background()), boom)
	assert.False(t, stopped.Load())
}

func TestPeriodic_RunsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	w := Periodic("test", 5*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
