package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime/debug"
	"time"

	prefaberrors "github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
	"golang.org/x/sync/errgroup"

	"github.com/feralcreative/moto-rooter/server/internal/clients/elevation"
	"github.com/feralcreative/moto-rooter/server/internal/clients/routefiles"
	"github.com/feralcreative/moto-rooter/server/internal/config"
	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
	"github.com/feralcreative/moto-rooter/server/internal/lib/manifest"
	"github.com/feralcreative/moto-rooter/server/internal/lib/ride"
	"github.com/feralcreative/moto-rooter/server/internal/lib/routefile"
	"github.com/feralcreative/moto-rooter/server/internal/lib/routing"
)

// publicDataPrefix is where the web page serves route files from
const publicDataPrefix = "data"

// RouteLoader loads every route in the manifest and annotates its waypoints
type RouteLoader struct {
	source    routefiles.Source
	config    *config.RoutesConfig
	geoUtils  geo.GeoUtils
	annotator routing.WaypointAnnotator
	elevation elevation.Lookup
	now       func() time.Time
}

// NewRouteLoader creates a loader. elev may be nil to skip elevation lookups.
func NewRouteLoader(source routefiles.Source, cfg *config.RoutesConfig, elev elevation.Lookup) *RouteLoader {
	return &RouteLoader{
		source:    source,
		config:    cfg,
		geoUtils:  geo.NewGeoUtils(),
		annotator: routing.NewWaypointAnnotator(),
		elevation: elev,
		now:       time.Now,
	}
}

// routeResult holds exactly one of route or failure
type routeResult struct {
	route   *ride.Route
	failure *ride.Failure
}

// Load reads the manifest and loads its routes concurrently. A route that
// fails is reported in RouteSet.Failures and never stops the others. Only a
// manifest that cannot be read or parsed fails the whole load.
func (l *RouteLoader) Load(ctx context.Context) (*ride.RouteSet, error) {
	ctx = logging.EnsureLogger(ctx)

	data, err := l.source.Fetch(ctx, l.config.Manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	m, err := manifest.Parse(l.config.Manifest, data)
	if err != nil {
		return nil, err
	}

	logging.Infow(ctx, "Route loader: loading manifest", "manifest", l.config.Manifest, "routes", len(m.Entries))
	for _, rejected := range m.Rejected {
		logging.Warnw(ctx, "Route loader: manifest entry rejected",
			"index", rejected.Index, "route", rejected.Base, "error", rejected.Err)
	}

	results := make([]routeResult, len(m.Entries))
	g := &errgroup.Group{}
	if l.config.MaxConcurrentFetches > 0 {
		g.SetLimit(l.config.MaxConcurrentFetches)
	}
	for i, entry := range m.Entries {
		i, entry := i, entry
		g.Go(func() error {
			results[i] = l.loadRouteSafe(ctx, i, entry)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("route load canceled: %w", err)
	}

	set := &ride.RouteSet{
		Routes:   make([]*ride.Route, 0, len(results)),
		LoadedAt: l.now(),
	}
	for _, res := range results {
		if res.failure != nil {
			set.Failures = append(set.Failures, *res.failure)
			continue
		}
		set.Routes = append(set.Routes, res.route)
	}
	// Rejected manifest rows never got a color
	for _, rejected := range m.Rejected {
		set.Failures = append(set.Failures, ride.Failure{
			Base:       rejected.Base,
			ColorIndex: -1,
			Kind:       ride.FailureParse,
			Message:    rejected.Err.Error(),
		})
	}
	set.Summarize()

	logging.Infow(ctx, "Route loader: load complete",
		"loaded", len(set.Routes), "failed", len(set.Failures), "total_miles", set.TotalMiles)
	return set, nil
}

// loadRouteSafe converts a panic while loading one route into a failure for
// that route
func (l *RouteLoader) loadRouteSafe(ctx context.Context, index int, entry manifest.Entry) (res routeResult) {
	defer func() {
		if r := recover(); r != nil {
			err, _ := prefaberrors.ParseStack(debug.Stack())
			skipFrames := 3
			numFrames := 5
			logging.Errorw(ctx, "Route loader: recovered from panic",
				"route", entry.Base, "error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
			res = routeResult{failure: &ride.Failure{
				Base:       entry.Base,
				ColorIndex: index,
				Kind:       ride.FailureParse,
				Message:    fmt.Sprintf("panic: %v", r),
			}}
		}
	}()

	route, err := l.loadRoute(ctx, index, entry)
	if err != nil {
		kind := classifyFailure(err)
		logging.Errorw(ctx, "Route loader: route omitted", "route", entry.Base, "kind", kind, "error", err)
		return routeResult{failure: &ride.Failure{
			Base:       entry.Base,
			ColorIndex: index,
			Kind:       kind,
			Message:    err.Error(),
		}}
	}
	return routeResult{route: route}
}

func classifyFailure(err error) ride.FailureKind {
	var fetchErr *routefiles.FetchError
	switch {
	case errors.Is(err, routefile.ErrEmptyPath):
		return ride.FailureEmptyPath
	case errors.Is(err, routefiles.ErrNotFound), errors.As(err, &fetchErr):
		return ride.FailureFetch
	default:
		return ride.FailureParse
	}
}

// loadRoute fetches and parses one route. KML is preferred; a route with only
// a GPX file is read from that instead.
func (l *RouteLoader) loadRoute(ctx context.Context, index int, entry manifest.Entry) (*ride.Route, error) {
	doc, format, hasGPX, err := l.fetchDocument(ctx, entry)
	if err != nil {
		return nil, err
	}

	link, err := routefiles.ReadLink(ctx, l.source, entry.URLFile())
	if err != nil {
		logging.Warnw(ctx, "Route loader: failed to read route link", "route", entry.Base, "error", err)
	}
	if link == "" {
		link = entry.MRA
	}

	acc := geo.NewAccumulator(doc.Path)
	annotation := l.annotator.Annotate(doc.Markers, doc.Path, acc)
	for _, skipped := range annotation.Skipped {
		logging.Warnw(ctx, "Route loader: skipped marker",
			"route", entry.Base, "index", skipped.Index, "label", skipped.Label, "reason", skipped.Reason)
	}
	l.fillElevations(ctx, entry.Base, annotation.Waypoints)

	bounds, err := l.geoUtils.BoundsOf(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to bound %s: %w", entry.Base, err)
	}

	palette := l.config.Palette
	if len(palette) == 0 {
		palette = config.DefaultPalette
	}

	route := &ride.Route{
		Base:        entry.Base,
		Name:        entry.DisplayName(),
		SourceName:  doc.Name,
		Format:      format,
		ColorIndex:  index,
		Color:       palette[index%len(palette)],
		MRA:         link,
		TotalMeters: acc.TotalMeters(),
		TotalMiles:  acc.TotalMiles(),
		Polyline: geo.Polyline{
			EncodedPolyline: l.geoUtils.EncodePolyline(doc.Path),
			Points:          doc.Path,
		},
		Bounds:    bounds,
		Waypoints: annotation.Waypoints,
		Skipped:   annotation.Skipped,
	}
	if format == "kml" {
		route.KMLPath = path.Join(publicDataPrefix, entry.KMLFile())
	}
	if hasGPX {
		route.GPXPath = path.Join(publicDataPrefix, entry.GPXFile())
	}
	return route, nil
}

// fetchDocument returns the parsed route file, its format and whether a GPX
// file exists for the route
func (l *RouteLoader) fetchDocument(ctx context.Context, entry manifest.Entry) (*routefile.Document, string, bool, error) {
	kmlData, err := l.source.Fetch(ctx, entry.KMLFile())
	if errors.Is(err, routefiles.ErrNotFound) {
		gpxData, gpxErr := l.source.Fetch(ctx, entry.GPXFile())
		if errors.Is(gpxErr, routefiles.ErrNotFound) {
			return nil, "", false, err
		}
		if gpxErr != nil {
			return nil, "", false, gpxErr
		}
		doc, parseErr := routefile.ParseGPX(string(gpxData))
		if parseErr != nil {
			return nil, "", true, parseErr
		}
		return doc, "gpx", true, nil
	}
	if err != nil {
		return nil, "", false, err
	}

	doc, err := routefile.ParseKML(string(kmlData))
	if err != nil {
		return nil, "", false, err
	}

	hasGPX, err := routefiles.Exists(ctx, l.source, entry.GPXFile())
	if err != nil {
		logging.Warnw(ctx, "Route loader: failed to check for GPX file", "route", entry.Base, "error", err)
	}
	return doc, "kml", hasGPX, nil
}

// fillElevations looks up waypoints the route file left without an elevation.
// Map editors write an altitude of 0 for every point, so zero counts as
// missing. The first failed lookup stops lookups for the rest of the route.
func (l *RouteLoader) fillElevations(ctx context.Context, base string, waypoints []routing.Waypoint) {
	if l.elevation == nil {
		return
	}
	for i := range waypoints {
		if ele := waypoints[i].Elevation; ele != nil && *ele != 0 {
			continue
		}
		ele, err := l.elevation.Elevation(ctx, waypoints[i].Point)
		if err != nil {
			logging.Warnw(ctx, "Route loader: elevation lookup failed", "route", base, "error", err)
			return
		}
		waypoints[i].Elevation = &ele
	}
}
