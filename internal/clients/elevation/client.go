package elevation

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tkrajina/go-elevations/geoelevations"

	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
)

// Lookup resolves ground elevation in meters for a point
type Lookup interface {
	Elevation(ctx context.Context, p geo.Point) (float64, error)
}

// LookupFunc adapts a function to Lookup
type LookupFunc func(ctx context.Context, p geo.Point) (float64, error)

func (f LookupFunc) Elevation(ctx context.Context, p geo.Point) (float64, error) {
	return f(ctx, p)
}

// SRTMClient looks elevations up in SRTM tiles downloaded on demand
type SRTMClient struct {
	httpClient *http.Client

	mu    sync.Mutex
	srtm  *geoelevations.Srtm
	cache map[geo.Point]float64
}

// NewSRTMClient creates a client. Tile indexes are fetched on first use.
func NewSRTMClient(timeout time.Duration) *SRTMClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SRTMClient{
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[geo.Point]float64),
	}
}

// Elevation returns the elevation at p. Repeated points are served from memory.
func (c *SRTMClient) Elevation(ctx context.Context, p geo.Point) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, found := c.cache[p]; found {
		return ele, nil
	}

	if c.srtm == nil {
		srtm, err := geoelevations.NewSrtm(c.httpClient)
		if err != nil {
			return 0, fmt.Errorf("failed to create srtm client: %w", err)
		}
		c.srtm = srtm
	}

	ele, err := c.srtm.GetElevation(c.httpClient, p.Latitude, p.Longitude)
	if err != nil {
		return 0, fmt.Errorf("failed to look up elevation for %.5f,%.5f: %w", p.Latitude, p.Longitude, err)
	}
	c.cache[p] = ele
	return ele, nil
}
