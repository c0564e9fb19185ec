package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/feralcreative/moto-rooter/server/internal/clients/routefiles"
	"github.com/feralcreative/moto-rooter/server/internal/config"
	"github.com/feralcreative/moto-rooter/server/internal/lib/kmlexport"
	"github.com/feralcreative/moto-rooter/server/internal/lib/routefile"
	"github.com/feralcreative/moto-rooter/server/internal/lib/routing"
	"github.com/feralcreative/moto-rooter/server/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "load":
		handleLoad()
	case "waypoints":
		handleWaypoints()
	case "label":
		handleLabel()
	case "export":
		handleExport()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleLoad() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	dataDir := fs.String("data-dir", "data", "Directory holding the manifest and route files")
	manifestName := fs.String("manifest", "routes.json", "Manifest file name inside data-dir")
	concurrency := fs.Int("concurrency", 4, "Maximum routes fetched at once")

	fs.Parse(os.Args[2:])

	cfg := config.DefaultConfig().Routes
	cfg.DataDir = *dataDir
	cfg.Manifest = *manifestName
	cfg.MaxConcurrentFetches = *concurrency

	loader := services.NewRouteLoader(routefiles.NewDirSource(*dataDir), &cfg, nil)

	start := time.Now()
	set, err := loader.Load(logging.EnsureLogger(context.Background()))
	if err != nil {
		log.Fatalf("Error loading routes: %v", err)
	}

	fmt.Printf("Loaded %d routes in %v (etag %s)\n\n", len(set.Routes), time.Since(start), set.ETag)
	for _, route := range set.Routes {
		fmt.Printf("  [%2d] %-32s %7.1f mi  %3d waypoints  %s  %s\n",
			route.ColorIndex, route.Name, route.TotalMiles, len(route.Waypoints), route.Format, route.Color)
		for _, skipped := range route.Skipped {
			fmt.Printf("         skipped marker %d %q: %s\n", skipped.Index, skipped.Label, skipped.Reason)
		}
	}

	if len(set.Failures) > 0 {
		fmt.Printf("\nFailed routes:\n")
		for _, failure := range set.Failures {
			fmt.Printf("  [%2d] %-32s %-10s %s\n", failure.ColorIndex, failure.Base, failure.Kind, failure.Message)
		}
	}

	fmt.Printf("\nTotal: %.1f miles\n", set.TotalMiles)
}

func handleWaypoints() {
	fs := flag.NewFlagSet("waypoints", flag.ExitOnError)
	file := fs.String("file", "", "KML or GPX route file")

	fs.Parse(os.Args[2:])

	if *file == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-route-loader waypoints --file data/01-Coast-Run.kml")
		os.Exit(1)
	}

	doc := mustParse(*file)
	annotation := routing.NewWaypointAnnotator().Annotate(doc.Markers, doc.Path, nil)

	fmt.Printf("%s: %d path points, %d markers\n\n", filepath.Base(*file), len(doc.Path), len(doc.Markers))
	fmt.Printf("  %-4s %-10s %-34s %9s %9s\n", "#", "ROLE", "NAME", "FROM START", "SINCE GAS")
	for _, wp := range annotation.Waypoints {
		fuel := ""
		if wp.FuelStop {
			fuel = " *"
		}
		fmt.Printf("  %-4d %-10s %-34s %9.1f %9.1f%s\n",
			wp.Index, wp.Role, truncate(wp.DisplayName, 34), wp.CumulativeMiles, wp.MilesSinceFuelStop, fuel)
	}
	for _, skipped := range annotation.Skipped {
		fmt.Printf("  %-4d %-10s %-34s skipped: %s\n", skipped.Index, "-", truncate(skipped.Label, 34), skipped.Reason)
	}
	fmt.Println("\n  * fuel baseline reset")
}

func handleLabel() {
	fs := flag.NewFlagSet("label", flag.ExitOnError)
	raw := fs.String("label", "", "Placemark label to classify")

	fs.Parse(os.Args[2:])

	if *raw == "" {
		fmt.Println("Example usage:")
		fmt.Println(`  test-route-loader label --label "CAMP/GAS - Basecamp"`)
		os.Exit(1)
	}

	label := routing.ParseLabel(*raw)
	roles := make([]string, len(label.Roles))
	for i, role := range label.Roles {
		roles[i] = role.String()
	}

	fmt.Printf("Label: %q\n", label.Raw)
	fmt.Printf("  Delimited:    %t\n", label.Delimited)
	fmt.Printf("  Roles:        [%s]\n", strings.Join(roles, ", "))
	fmt.Printf("  Primary:      %s (%s)\n", label.Primary(), label.Primary().Title())
	fmt.Printf("  Display name: %q\n", label.DisplayName)
	fmt.Printf("  Number only:  %t\n", label.NumberOnly)
	fmt.Printf("  Fuel stop:    %t\n", label.Has(routing.RoleGas))
}

func handleExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dataDir := fs.String("data-dir", "data", "Directory holding the manifest and route files")
	manifestName := fs.String("manifest", "routes.json", "Manifest file name inside data-dir")
	base := fs.String("base", "", "Route base name to export")

	fs.Parse(os.Args[2:])

	if *base == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-route-loader export --data-dir data --base 01-Coast-Run > coast.kml")
		os.Exit(1)
	}

	cfg := config.DefaultConfig().Routes
	cfg.DataDir = *dataDir
	cfg.Manifest = *manifestName

	set, err := services.NewRouteLoader(routefiles.NewDirSource(*dataDir), &cfg, nil).Load(logging.EnsureLogger(context.Background()))
	if err != nil {
		log.Fatalf("Error loading routes: %v", err)
	}
	route := set.Find(*base)
	if route == nil {
		log.Fatalf("Route %q not loaded", *base)
	}
	if err := kmlexport.Write(os.Stdout, route); err != nil {
		log.Fatalf("Error writing KML: %v", err)
	}
}

func mustParse(file string) *routefile.Document {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("Error reading %s: %v", file, err)
	}

	var doc *routefile.Document
	if strings.EqualFold(filepath.Ext(file), ".gpx") {
		doc, err = routefile.ParseGPX(string(data))
	} else {
		doc, err = routefile.ParseKML(string(data))
	}
	if err != nil {
		log.Fatalf("Error parsing %s: %v", file, err)
	}
	return doc
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printUsage() {
	fmt.Println("Route Loader Test Tool")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  test-route-loader <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  load        Load every route in a manifest and print mileage")
	fmt.Println("  waypoints   Print the waypoint table for one KML or GPX file")
	fmt.Println("  label       Show how a placemark label is classified")
	fmt.Println("  export      Write a loaded route as annotated KML to stdout")
	fmt.Println("  help        Show this help message")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  test-route-loader load --data-dir data")
	fmt.Println("  test-route-loader waypoints --file data/01-Coast-Run.kml")
	fmt.Println(`  test-route-loader label --label "GAS - Shell"`)
	fmt.Println("  test-route-loader export --base 01-Coast-Run")
}
