package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/dpup/prefab"
	"github.com/dpup/prefab/logging"

	"github.com/feralcreative/moto-rooter/server/internal/cache"
	"github.com/feralcreative/moto-rooter/server/internal/clients/elevation"
	"github.com/feralcreative/moto-rooter/server/internal/clients/routefiles"
	"github.com/feralcreative/moto-rooter/server/internal/config"
	"github.com/feralcreative/moto-rooter/server/internal/lib/icons"
	"github.com/feralcreative/moto-rooter/server/internal/services"
)

func main() {
	// Load configuration using Prefab's config system
	appConfig := loadConfig()

	source, err := newSource(&appConfig.Routes)
	if err != nil {
		log.Fatalf("Failed to create route source: %v", err)
	}

	var elev elevation.Lookup
	if appConfig.Elevation.Enabled {
		elev = elevation.NewSRTMClient(appConfig.Elevation.Timeout)
		log.Printf("SRTM elevation lookups enabled")
	}

	// Initialize cache
	cacheInstance := cache.NewCache()
	ctx := logging.EnsureLogger(context.Background())
	cacheInstance.StartPeriodicCleanup(ctx, appConfig.Routes.StaleThreshold)

	iconCache := icons.NewCache(os.DirFS(appConfig.Icons.Dir), appConfig.Routes.Palette)
	loader := services.NewRouteLoader(source, &appConfig.Routes, elev)
	routesService := services.NewRoutesService(loader, cacheInstance, iconCache, &appConfig.Routes)

	log.Printf("Route server starting")
	log.Printf("Route source: %s (manifest %s)", appConfig.Routes.Source, appConfig.Routes.Manifest)

	// Start periodic refresh to maintain cache warmth
	periodicRefresh := services.NewPeriodicRefreshService(
		services.ForRoutes(routesService), appConfig.Routes.RefreshInterval, 0)
	if err := periodicRefresh.StartPeriodicRefresh(ctx); err != nil {
		log.Printf("Failed to start periodic refresh: %v", err)
	}

	// Server configuration (port, etc.) will be loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
		prefab.WithHTTPHandlerFunc(services.RoutesPath, routesService.HandleListRoutes),
		prefab.WithHTTPHandlerFunc(services.RoutesPath+"/", routesService.HandleRoute),
		prefab.WithHTTPHandlerFunc(services.IconsPath, routesService.HandleIcon),
	)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	periodicRefresh.Stop()
}

// loadConfig loads configuration using Prefab's config system
// Configuration is loaded from prefab.yaml and environment variables with PF__ prefix
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	// Unmarshal specific sections from Prefab's config using exact key paths
	if err := prefab.Config.Unmarshal("routes", &appConfig.Routes); err != nil {
		log.Fatalf("Failed to unmarshal routes section: %v", err)
	}

	if err := prefab.Config.Unmarshal("icons", &appConfig.Icons); err != nil {
		log.Fatalf("Failed to unmarshal icons section: %v", err)
	}

	if err := prefab.Config.Unmarshal("elevation", &appConfig.Elevation); err != nil {
		log.Fatalf("Failed to unmarshal elevation section: %v", err)
	}

	if err := appConfig.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	return appConfig
}

func newSource(cfg *config.RoutesConfig) (routefiles.Source, error) {
	switch cfg.Source {
	case config.SourceHTTP:
		return routefiles.NewHTTPSource(cfg.BaseURL, cfg.FetchTimeout)
	default:
		return routefiles.NewDirSource(cfg.DataDir), nil
	}
}

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	// Only handle the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>moto-rooter</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #111;
            color: #eee;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #f60; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #fc0; }
    </style>
</head>
<body>
<pre>
<span class="header">moto-rooter</span>

Ride routes with waypoints, mileage from start and miles since the last gas stop.

<span class="header">API Endpoints:</span>

  <a href="/api/v1/routes">GET /api/v1/routes</a>                         - All routes in manifest order
  GET /api/v1/routes/{base}                   - One route with its waypoints
  GET /api/v1/routes/{base}/annotated.kml     - Route KML with mileage in each balloon
  <a href="/api/v1/icons/gas?color=0">GET /api/v1/icons/{role}?color=N</a>            - Role icon in the route color (variant=dim for faded)

<span class="header">Route files:</span>
  routes.json / routes.yaml   - manifest, one entry per route
  &lt;base&gt;.kml                  - path and labeled placemarks ("GAS - Shell", "CAMP/GAS - Basecamp")
  &lt;base&gt;.gpx                  - optional download, used when no KML exists
  &lt;base&gt;.url                  - optional link to the route in a routing app
</pre>
</body>
</html>`

	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("Failed to write homepage HTML", "error", err)
	}
}
