package watchdog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	pingErr error
	closed  bool
}

func (c *fakeConn) Ping(_ context.Context) error { return c.pingErr }
func (c *fakeConn) Close()                       { c.closed = true }

func TestWaitSucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	conn := &fakeConn{}
	connect := func(_ context.Context) (Pinger, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}

	err := Wait(context.Background(), connect, Config{
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.True(t, conn.closed)
}

func TestWaitRetriesOnFailedPing(t *testing.T) {
	t.Parallel()

	attempts := 0
	connect := func(_ context.Context) (Pinger, error) {
		attempts++
		if attempts == 1 {
			return &fakeConn{pingErr: errors.New("not ready")}, nil
		}
		return &fakeConn{}, nil
	}

	err := Wait(context.Background(), connect, Config{
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestWaitTimesOut(t *testing.T) {
	t.Parallel()

	connect := func(_ context.Context) (Pinger, error) {
		return nil, errors.New("connection refused")
	}

	err := Wait(context.Background(), connect, Config{
		Interval: 5 * time.Millisecond,
		Timeout:  20 * time.Millisecond,
	}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not reachable")
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	connect := func(_ context.Context) (Pinger, error) {
		return nil, errors.New("connection refused")
	}

	err := Wait(ctx, connect, Config{
		Interval: time.Hour,
		Timeout:  time.Hour,
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
