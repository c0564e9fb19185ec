package icons

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/feralcreative/moto-rooter/server/internal/lib/routing"
)

// Variant selects an icon's opacity
type Variant string

const (
	VariantFull Variant = "full"
	VariantDim  Variant = "dim"
)

// Opacity applied to the root element for each variant
const (
	fullOpacity = "1.0"
	dimOpacity  = "0.3"
)

// ErrNoIcon is returned for roles that are drawn as a plain circle
var ErrNoIcon = errors.New("role has no icon")

// ErrBadColor is returned for a color index below zero or an empty palette
var ErrBadColor = errors.New("invalid color index")

var (
	fillAttr  = regexp.MustCompile(`(?i)fill="(currentColor|#000|#fff)"`)
	fillNone  = regexp.MustCompile(`(?i)fill:none`)
	svgOpener = regexp.MustCompile(`<svg `)
)

// ParseVariant accepts "full", "dim" or "" (full)
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(s)) {
	case "", VariantFull:
		return VariantFull, nil
	case VariantDim:
		return VariantDim, nil
	default:
		return "", fmt.Errorf("unknown icon variant %q", s)
	}
}

type key struct {
	kind       routing.RoleKind
	colorIndex int
	variant    Variant
}

// Cache colorizes role icons per route color. Entries are built on first use
// and kept for the life of the cache.
type Cache struct {
	fsys    fs.FS
	palette []string

	mu      sync.RWMutex
	entries map[key]string
}

// NewCache creates a cache reading source SVGs from fsys
func NewCache(fsys fs.FS, palette []string) *Cache {
	return &Cache{
		fsys:    fsys,
		palette: palette,
		entries: make(map[key]string),
	}
}

// SVG returns the colorized icon markup for a role
func (c *Cache) SVG(role routing.Role, colorIndex int, variant Variant) (string, error) {
	if role.Kind == routing.RoleNone || role.Kind == routing.RoleCustom || role.IconFile() == "" {
		return "", ErrNoIcon
	}
	if colorIndex < 0 || len(c.palette) == 0 {
		return "", ErrBadColor
	}
	if variant == "" {
		variant = VariantFull
	}

	k := key{kind: role.Kind, colorIndex: colorIndex % len(c.palette), variant: variant}

	c.mu.RLock()
	svg, found := c.entries[k]
	c.mu.RUnlock()
	if found {
		return svg, nil
	}

	raw, err := fs.ReadFile(c.fsys, role.IconFile())
	if err != nil {
		return "", fmt.Errorf("failed to read icon %s: %w", role.IconFile(), err)
	}

	opacity := fullOpacity
	if variant == VariantDim {
		opacity = dimOpacity
	}
	svg = Colorize(string(raw), c.palette[k.colorIndex], opacity)

	c.mu.Lock()
	c.entries[k] = svg
	c.mu.Unlock()
	return svg, nil
}

// DataURI returns the colorized icon as an inline image URI
func (c *Cache) DataURI(role routing.Role, colorIndex int, variant Variant) (string, error) {
	svg, err := c.SVG(role, colorIndex, variant)
	if err != nil {
		return "", err
	}
	return ToDataURI(svg), nil
}

// Len reports the number of cached icons
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Colorize recolors the icon's fills and sets opacity on the root element
func Colorize(svg, color, opacity string) string {
	svg = fillAttr.ReplaceAllLiteralString(svg, `fill="`+color+`"`)
	svg = fillNone.ReplaceAllLiteralString(svg, "fill:"+color)

	if loc := svgOpener.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] + `<svg opacity="` + opacity + `" ` + svg[loc[1]:]
	}
	return svg
}

// ToDataURI percent-encodes svg into a data URI
func ToDataURI(svg string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(svg), "+", "%20")
	return "data:image/svg+xml;charset=UTF-8," + encoded
}
