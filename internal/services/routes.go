package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/feralcreative/moto-rooter/server/internal/cache"
	"github.com/feralcreative/moto-rooter/server/internal/config"
	"github.com/feralcreative/moto-rooter/server/internal/lib/icons"
	"github.com/feralcreative/moto-rooter/server/internal/lib/kmlexport"
	"github.com/feralcreative/moto-rooter/server/internal/lib/ride"
	"github.com/feralcreative/moto-rooter/server/internal/lib/routing"
)

// HTTP paths served by RoutesService
const (
	RoutesPath = "/api/v1/routes"
	IconsPath  = "/api/v1/icons/"

	annotatedSuffix = "/annotated.kml"
)

const defaultLoadTimeout = 2 * time.Minute

// RouteSetLoader produces a fresh route set
type RouteSetLoader interface {
	Load(ctx context.Context) (*ride.RouteSet, error)
}

// RoutesService serves loaded routes over HTTP, backed by a stale-while-refresh
// cache
type RoutesService struct {
	loader RouteSetLoader
	cache  *cache.Cache
	icons  *icons.Cache
	config *config.RoutesConfig

	refreshGroup singleflight.Group
}

// NewRoutesService creates a new RoutesService
func NewRoutesService(loader RouteSetLoader, cache *cache.Cache, iconCache *icons.Cache, config *config.RoutesConfig) *RoutesService {
	return &RoutesService{
		loader: loader,
		cache:  cache,
		icons:  iconCache,
		config: config,
	}
}

func (s *RoutesService) cacheKey() string {
	return cache.RouteSetKey(s.config.Manifest)
}

// ListRoutes returns the cached route set, refreshing it when stale. If the
// refresh fails a stale set is still served until it passes the stale
// threshold.
func (s *RoutesService) ListRoutes(ctx context.Context) (*cache.CacheEntry, error) {
	ctx = logging.EnsureLogger(ctx)
	cacheKey := s.cacheKey()

	if entry, found := s.cache.Get(cacheKey); found {
		return entry, nil
	}

	entry, err := s.Refresh(ctx)
	if err != nil {
		if stale, found := s.cache.GetWithMetadata(cacheKey); found && !s.cache.IsVeryStale(cacheKey) {
			logging.Warnw(ctx, "Routes: refresh failed, serving stale route set",
				"error", err, "loaded_at", stale.CreatedAt)
			return stale, nil
		}
		return nil, status.Errorf(codes.Unavailable, "failed to load routes: %v", err)
	}
	return entry, nil
}

// Refresh reloads the route set and replaces the cache entry. Concurrent
// callers share one load, which is detached from the caller's cancellation so
// one dropped request does not fail the others.
func (s *RoutesService) Refresh(ctx context.Context) (*cache.CacheEntry, error) {
	v, err, _ := s.refreshGroup.Do(s.cacheKey(), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout())
		defer cancel()

		set, err := s.loader.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		return s.cache.SetRouteSet(s.config.Manifest, set, s.config.RefreshInterval, s.config.StaleThreshold)
	})
	if err != nil {
		return nil, err
	}
	return v.(*cache.CacheEntry), nil
}

// loadTimeout bounds a shared load. Zero FetchTimeout means two minutes.
func (s *RoutesService) loadTimeout() time.Duration {
	if s.config.FetchTimeout > 0 {
		return s.config.FetchTimeout
	}
	return defaultLoadTimeout
}

// GetRoute returns a single route by manifest base
func (s *RoutesService) GetRoute(ctx context.Context, base string) (*ride.Route, error) {
	entry, err := s.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}
	set := entry.RouteSet()
	if set == nil {
		return nil, status.Error(codes.Internal, "cached route set is unreadable")
	}
	if route := set.Find(base); route != nil {
		return route, nil
	}
	return nil, status.Errorf(codes.NotFound, "route not found: %s", base)
}

// HandleListRoutes serves GET /api/v1/routes
func (s *RoutesService) HandleListRoutes(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	ctx := logging.EnsureLogger(r.Context())
	entry, err := s.ListRoutes(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if entry.ETag != "" {
		w.Header().Set("ETag", entry.ETag)
		if etagMatches(r.Header.Get("If-None-Match"), entry.ETag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Last-Modified", entry.CreatedAt.UTC().Format(http.TimeFormat))
	writeJSONBytes(ctx, w, entry.Data)
}

// HandleRoute serves GET /api/v1/routes/{base} and
// GET /api/v1/routes/{base}/annotated.kml
func (s *RoutesService) HandleRoute(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	ctx := logging.EnsureLogger(r.Context())
	rest := strings.TrimPrefix(r.URL.Path, RoutesPath+"/")
	if rest == "" || rest == r.URL.Path {
		s.HandleListRoutes(w, r)
		return
	}

	base, annotated := strings.CutSuffix(rest, annotatedSuffix)
	if base == "" || strings.Contains(base, "/") {
		writeError(ctx, w, status.Errorf(codes.NotFound, "no such resource: %s", r.URL.Path))
		return
	}

	route, err := s.GetRoute(ctx, base)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if annotated {
		s.writeAnnotatedKML(ctx, w, route)
		return
	}

	etag := ride.NewContentHasher().HashRoute(route)
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	data, err := json.Marshal(route)
	if err != nil {
		writeError(ctx, w, status.Errorf(codes.Internal, "failed to encode route: %v", err))
		return
	}
	writeJSONBytes(ctx, w, data)
}

func (s *RoutesService) writeAnnotatedKML(ctx context.Context, w http.ResponseWriter, route *ride.Route) {
	var buf bytes.Buffer
	if err := kmlexport.Write(&buf, route); err != nil {
		writeError(ctx, w, status.Errorf(codes.Internal, "failed to export route: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", route.Base+"-annotated.kml"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.Errorw(ctx, "Routes: failed to write KML", "error", err)
	}
}

// HandleIcon serves GET /api/v1/icons/{role}?color=N&variant=full|dim. With
// format=data-uri the icon is returned as a data URI in plain text.
func (s *RoutesService) HandleIcon(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	ctx := logging.EnsureLogger(r.Context())
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, IconsPath), ".svg")
	kind, ok := routing.ParseRoleKind(name)
	if !ok {
		writeError(ctx, w, status.Errorf(codes.NotFound, "unknown role: %s", name))
		return
	}

	q := r.URL.Query()
	colorIndex := 0
	if c := q.Get("color"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			writeError(ctx, w, status.Errorf(codes.InvalidArgument, "invalid color index %q", c))
			return
		}
		colorIndex = n
	}
	variant, err := icons.ParseVariant(q.Get("variant"))
	if err != nil {
		writeError(ctx, w, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	svg, err := s.icons.SVG(routing.Role{Kind: kind}, colorIndex, variant)
	switch {
	case errors.Is(err, icons.ErrNoIcon):
		writeError(ctx, w, status.Errorf(codes.NotFound, "no icon for role %s", kind))
		return
	case errors.Is(err, icons.ErrBadColor):
		writeError(ctx, w, status.Errorf(codes.InvalidArgument, "invalid color index %d", colorIndex))
		return
	case err != nil:
		writeError(ctx, w, status.Errorf(codes.NotFound, "icon unavailable: %v", err))
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	body := svg
	if q.Get("format") == "data-uri" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		body = icons.ToDataURI(svg)
	} else {
		w.Header().Set("Content-Type", "image/svg+xml")
	}
	if _, err := w.Write([]byte(body)); err != nil {
		logging.Errorw(ctx, "Routes: failed to write icon", "error", err)
	}
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

// etagMatches reports whether an If-None-Match header covers etag
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func writeJSONBytes(ctx context.Context, w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		logging.Errorw(ctx, "Routes: failed to write response", "error", err)
	}
}

// writeError maps a status error to its HTTP equivalent and writes a JSON body
// shaped like the gateway's error responses
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	st, ok := status.FromError(err)
	if !ok {
		st = status.New(codes.Internal, err.Error())
	}
	httpStatus := runtime.HTTPStatusFromCode(st.Code())
	if httpStatus >= http.StatusInternalServerError {
		logging.Errorw(ctx, "Routes: request failed", "code", st.Code().String(), "error", st.Message())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	body, _ := json.Marshal(map[string]interface{}{
		"code":    int(st.Code()),
		"message": st.Message(),
	})
	if _, writeErr := w.Write(body); writeErr != nil {
		logging.Errorw(ctx, "Routes: failed to write error response", "error", writeErr)
	}
}
