package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestControllerPauseResume(t *testing.T) {
	controller := NewController()
	require.Equal(t, "running", controller.State())

	controller.Pause()
	require.Equal(t, "paused", controller.State())

	done := make(chan error, 1)
	go func() {
		done <- controller.Wait(context.Background())
	}()

	select {
	case <-time.After(100 * time.Millisecond):
	case err := <-done:
		t.Fatalf("expected wait to block, got %v", err)
	}

	controller.Resume()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("controller wait did not resume")
	}
}

func TestControllerResumeReleasesAllWaiters(t *testing.T) {
	controller := NewController()
	controller.Pause()

	const waiters = 4
	done := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			done <- controller.Wait(context.Background())
		}()
	}

	controller.Resume()

	for i := 0; i < waiters; i++ {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("a parked waiter was not released by resume")
		}
	}
}

func TestControllerKillPropagatesError(t *testing.T) {
	controller := NewController()
	customErr := errors.New("boom")

	done := make(chan error, 1)
	go func() {
		done <- controller.Wait(context.Background())
	}()

	controller.Kill(customErr)

	select {
	case err := <-done:
		require.ErrorIs(t, err, customErr)
	case <-time.After(time.Second):
		t.Fatal("controller wait did not unblock after kill")
	}
	require.Equal(t, "stopping", controller.State())
}

func TestControllerKillWithoutErrorSignalsCancellation(t *testing.T) {
	controller := NewController()
	controller.Kill(nil)
	require.ErrorIs(t, controller.Wait(context.Background()), context.Canceled)
}

func TestControllerWaitRespectsContextCancellation(t *testing.T) {
	controller := NewController()
	controller.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- controller.Wait(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("controller wait did not exit on cancellation")
	}
}
