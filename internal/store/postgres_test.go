// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/pkg/errutil"
)

type flakyPinger struct {
	failures int32
	calls    atomic.Int32
}

func (p *flakyPinger) Ping(_ context.Context) error {
	if p.calls.Add(1) <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPingWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		retries   uint64
		wantCalls int32
		wantErr   bool
	}{
		{name: "reachable immediately", failures: 0, retries: 3, wantCalls: 1},
		{name: "recovers after failures", failures: 2, retries: 3, wantCalls: 3},
		{name: "gives up", failures: 10, retries: 2, wantCalls: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &flakyPinger{failures: tt.failures}
			err := pingWithRetry(context.Background(), p, tt.retries, time.Millisecond, discardLogger())

			assert.Equal(t, tt.wantCalls, p.calls.Load())
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPingWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &flakyPinger{failures: 100}
	err := pingWithRetry(ctx, p, 50, time.Hour, discardLogger())
	require.Error(t, err)
	assert.LessOrEqual(t, p.calls.Load(), int32(1))
}

func TestReadiness(t *testing.T) {
	healthy := Readiness(&flakyPinger{}, time.Second)
	assert.True(t, healthy())

	unhealthy := Readiness(&flakyPinger{failures: 100}, time.Second)
	assert.False(t, unhealthy())
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "://not a url", 0, discardLogger())
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}
