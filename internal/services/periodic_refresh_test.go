package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/feralcreative/moto-rooter/server/internal/cache"
)

func TestPeriodicRefresh_RefreshesUntilStopped(t *testing.T) {
	var calls int32
	refresher := RefresherFunc(func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	p := NewPeriodicRefreshService(refresher, 10*time.Millisecond, 0)
	require.NoError(t, p.StartPeriodicRefresh(context.Background()))
	require.NoError(t, p.StartPeriodicRefresh(context.Background()), "starting twice is a no-op")
	assert.True(t, p.IsRunning())

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.IsRunning())
	after := atomic.LoadInt32(&calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls), "no refreshes after Stop returns")

	p.Stop()
}

func TestPeriodicRefresh_StartsWithoutLogger(t *testing.T) {
	p := NewPeriodicRefreshService(RefresherFunc(func(context.Context) error { return nil }), time.Minute, 0)
	require.NotPanics(t, func() {
		require.NoError(t, p.StartPeriodicRefresh(context.Background()))
	})
	p.Stop()
}

func TestPeriodicRefresh_ErrorsDoNotStopLoop(t *testing.T) {
	var calls int32
	refresher := RefresherFunc(func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("source down")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPeriodicRefreshService(refresher, 10*time.Millisecond, time.Second)
	require.NoError(t, p.StartPeriodicRefresh(ctx))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestPeriodicRefresh_Disabled(t *testing.T) {
	p := NewPeriodicRefreshService(RefresherFunc(func(context.Context) error { return nil }), 0, 0)
	require.NoError(t, p.StartPeriodicRefresh(context.Background()))
	assert.False(t, p.IsRunning())
}

func TestPeriodicRefresh_WarmsRoutesCache(t *testing.T) {
	loader := &MockRouteSetLoader{}
	loader.On("Load", mock.Anything).Return(loadedSet(t), nil)
	svc, c := newTestRoutesService(loader)

	p := NewPeriodicRefreshService(ForRoutes(svc), time.Hour, 0)
	require.NoError(t, p.StartPeriodicRefresh(context.Background()))
	defer p.Stop()

	assert.Eventually(t, func() bool {
		_, ok := c.Get(cache.RouteSetKey(svc.config.Manifest))
		return ok
	}, time.Second, 5*time.Millisecond)
}
