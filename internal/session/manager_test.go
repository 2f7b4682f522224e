package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreateAndGet(t *testing.T) {
	f := newFixture(t)

	s := f.mgr.Create()
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "home", s.Snapshot().ActiveTab)
	assert.Equal(t, 1, s.Snapshot().MessageCount)

	got, err := f.mgr.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = f.mgr.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepEvictsIdleSessionsAndReleasesCamera(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	f.mgr.now = func() time.Time { return now }

	idle := f.mgr.Create()
	require.NoError(t, idle.OpenCamera(context.Background()))
	active := f.mgr.Create()

	now = now.Add(45 * time.Second)
	_, err := f.mgr.Get(active.ID())
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, f.mgr.Sweep())
	assert.Equal(t, 1, f.mgr.Len())

	_, err = f.mgr.Get(idle.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), f.camera.streams[0].stopped.Load())

	_, err = idle.Send(context.Background(), "hello?")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunClosesSessionsOnShutdown(t *testing.T) {
	f := newFixture(t)
	s := f.mgr.Create()
	require.NoError(t, s.OpenCamera(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.mgr.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	assert.Zero(t, f.mgr.Len())
	assert.Equal(t, int32(1), f.camera.streams[0].stopped.Load())
}
