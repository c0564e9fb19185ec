package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/feralcreative/moto-rooter/server/internal/cache"
	"github.com/feralcreative/moto-rooter/server/internal/lib/icons"
	"github.com/feralcreative/moto-rooter/server/internal/lib/ride"
)

// MockRouteSetLoader is a mock implementation of RouteSetLoader
type MockRouteSetLoader struct {
	mock.Mock
}

func (m *MockRouteSetLoader) Load(ctx context.Context) (*ride.RouteSet, error) {
	args := m.Called(ctx)
	set, _ := args.Get(0).(*ride.RouteSet)
	return set, args.Error(1)
}

const testIcon = `<svg xmlns="http://www.w3.org/2000/svg"><path fill="currentColor"/></svg>`

func newTestRoutesService(loader RouteSetLoader) (*RoutesService, *cache.Cache) {
	c := cache.NewCache()
	cfg := testRoutesConfig()
	iconCache := icons.NewCache(fstest.MapFS{
		"icon-gas.svg": {Data: []byte(testIcon)},
	}, cfg.Palette)
	return NewRoutesService(loader, c, iconCache, cfg), c
}

func loadedSet(t *testing.T) *ride.RouteSet {
	t.Helper()
	set, err := NewRouteLoader(testSource(), testRoutesConfig(), nil).Load(context.Background())
	require.NoError(t, err)
	return set
}

func serve(handler http.HandlerFunc, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRoutesService_ListRoutesCachesFreshSet(t *testing.T) {
	loader := &MockRouteSetLoader{}
	loader.On("Load", mock.Anything).Return(loadedSet(t), nil).Once()
	svc, _ := newTestRoutesService(loader)

	first, err := svc.ListRoutes(context.Background())
	require.NoError(t, err)
	second, err := svc.ListRoutes(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second, "fresh entries are served without reloading")
	loader.AssertNumberOfCalls(t, "Load", 1)
}

func TestRoutesService_ServesStaleOnRefreshFailure(t *testing.T) {
	loader := &MockRouteSetLoader{}
	loader.On("Load", mock.Anything).Return(loadedSet(t), nil).Once()
	loader.On("Load", mock.Anything).Return(nil, errors.New("source down"))
	svc, c := newTestRoutesService(loader)

	_, err := svc.ListRoutes(context.Background())
	require.NoError(t, err)

	// Past the refresh interval, inside the stale threshold
	entry, _ := c.GetWithMetadata(svc.cacheKey())
	entry.CreatedAt = time.Now().Add(-10 * time.Minute)
	entry.ExpiresAt = entry.CreatedAt.Add(time.Minute)

	stale, err := svc.ListRoutes(context.Background())
	require.NoError(t, err)
	assert.Same(t, entry, stale)

	// Past the stale threshold the failure surfaces
	entry.CreatedAt = time.Now().Add(-24 * time.Hour)
	_, err = svc.ListRoutes(context.Background())
	assert.Error(t, err)
}

// loaderFunc adapts a function to RouteSetLoader
type loaderFunc func(ctx context.Context) (*ride.RouteSet, error)

func (f loaderFunc) Load(ctx context.Context) (*ride.RouteSet, error) {
	return f(ctx)
}

func TestRoutesService_RefreshOutlivesCanceledCaller(t *testing.T) {
	set := loadedSet(t)
	loader := loaderFunc(func(ctx context.Context) (*ride.RouteSet, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := ctx.Deadline(); !ok {
			return nil, errors.New("shared load has no deadline")
		}
		return set, nil
	})
	svc, _ := newTestRoutesService(loader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry, err := svc.Refresh(ctx)
	require.NoError(t, err, "a caller that went away does not cancel the shared load")
	assert.Same(t, set, entry.RouteSet())
}

func TestHandleListRoutes(t *testing.T) {
	loader := &MockRouteSetLoader{}
	loader.On("Load", mock.Anything).Return(loadedSet(t), nil)
	svc, _ := newTestRoutesService(loader)

	rec := serve(svc.HandleListRoutes, http.MethodGet, RoutesPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var body struct {
		Routes []struct {
			Base      string `json:"base"`
			Waypoints []struct {
				Role               string  `json:"role"`
				MilesSinceFuelStop float64 `json:"miles_since_fuel_stop"`
			} `json:"waypoints"`
		} `json:"routes"`
		Failures []ride.Failure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Routes, 2)
	assert.Equal(t, "GAS", body.Routes[0].Waypoints[0].Role)
	assert.Len(t, body.Failures, 2)

	rec = serve(svc.HandleListRoutes, http.MethodGet, RoutesPath, http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(svc.HandleListRoutes, http.MethodPost, RoutesPath, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleListRoutes_Unavailable(t *testing.T) {
	loader := &MockRouteSetLoader{}
	loader.On("Load", mock.Anything).Return(nil, errors.New("manifest missing"))
	svc, _ := newTestRoutesService(loader)

	rec := serve(svc.HandleListRoutes, http.MethodGet, RoutesPath, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "manifest missing")
}

func TestHandleRoute(t *testing.T) {
	loader := &MockRouteSetLoader{}
	loader.On("Load", mock.Anything).Return(loadedSet(t), nil)
	svc, _ := newTestRoutesService(loader)

	rec := serve(svc.HandleRoute, http.MethodGet, RoutesPath+"/01-Coast-Run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var route ride.Route
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &route))
	assert.Equal(t, "Coast Run", route.Name)
	assert.Len(t, route.Waypoints, 3)

	etag := rec.Header().Get("ETag")
	rec = serve(svc.HandleRoute, http.MethodGet, RoutesPath+"/01-Coast-Run", http.Header{"If-None-Match": {"W/" + etag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = serve(svc.HandleRoute, http.MethodGet, RoutesPath+"/02-Broken", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "failed routes are not served")

	rec = serve(svc.HandleRoute, http.MethodGet, RoutesPath+"/a/b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(svc.HandleRoute, http.MethodGet, RoutesPath+"/", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "trailing slash lists routes")
}

func TestHandleRoute_AnnotatedKML(t *testing.T) {
	loader := &MockRouteSetLoader{}
	loader.On("Load", mock.Anything).Return(loadedSet(t), nil)
	svc, _ := newTestRoutesService(loader)

	rec := serve(svc.HandleRoute, http.MethodGet, RoutesPath+"/01-Coast-Run/annotated.kml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "01-Coast-Run-annotated.kml")
	assert.Contains(t, rec.Body.String(), "MEET - Joe")
	assert.Contains(t, rec.Body.String(), "Miles since gas:")
}

func TestHandleIcon(t *testing.T) {
	svc, _ := newTestRoutesService(&MockRouteSetLoader{})

	rec := serve(svc.HandleIcon, http.MethodGet, IconsPath+"fuel?color=1&variant=dim", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `opacity="0.3"`)
	assert.Contains(t, rec.Body.String(), `fill="#0000cc"`)

	rec = serve(svc.HandleIcon, http.MethodGet, IconsPath+"GAS.svg?format=data-uri", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "data:image/svg+xml;charset=UTF-8,"))

	rec = serve(svc.HandleIcon, http.MethodGet, IconsPath+"tacos", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(svc.HandleIcon, http.MethodGet, IconsPath+"gas?color=red", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(svc.HandleIcon, http.MethodGet, IconsPath+"gas?color=-2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(svc.HandleIcon, http.MethodGet, IconsPath+"gas?variant=bright", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(svc.HandleIcon, http.MethodGet, IconsPath+"food", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "icon file missing from the icons dir")
}

func TestEtagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"abc"`, `"abc"`))
	assert.True(t, etagMatches(`"x", W/"abc"`, `"abc"`))
	assert.True(t, etagMatches(`*`, `"abc"`))
	assert.False(t, etagMatches(``, `"abc"`))
	assert.False(t, etagMatches(`"abd"`, `"abc"`))
}
