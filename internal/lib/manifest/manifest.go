package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Entry is one route listed in a manifest
type Entry struct {
	Base string `json:"base" yaml:"base" validate:"required,excludesall=/"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	MRA  string `json:"mra,omitempty" yaml:"mra,omitempty" validate:"omitempty,url"`
}

// Manifest lists routes in display order. Elements that fail validation are
// left out of Entries and listed in Rejected.
type Manifest struct {
	Entries  []Entry
	Rejected []Rejected
}

// Rejected is a manifest element that could not be used as a route
type Rejected struct {
	Index int    // position in the manifest array
	Base  string // may be empty
	Err   error
}

// ErrUnknownFormat is returned when a manifest name has no known extension
var ErrUnknownFormat = errors.New("unknown manifest format")

var ordinalName = regexp.MustCompile(`^\d+-(.+)$`)

var validate = validator.New()

// rawEntry accepts every element shape the manifest allows
type rawEntry struct {
	Base string `json:"base" yaml:"base"`
	KML  string `json:"kml" yaml:"kml"`
	Name string `json:"name" yaml:"name"`
	MRA  string `json:"mra" yaml:"mra"`

	bare   string
	isBare bool
}

func (r *rawEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		r.isBare = true
		return json.Unmarshal(data, &r.bare)
	}
	type plain rawEntry
	return json.Unmarshal(data, (*plain)(r))
}

func (r *rawEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.isBare = true
		return node.Decode(&r.bare)
	}
	type plain rawEntry
	return node.Decode((*plain)(r))
}

// entry normalizes a raw element. ok is false for elements to ignore.
func (r rawEntry) entry() (Entry, bool) {
	if r.isBare {
		name := strings.TrimSpace(r.bare)
		if !strings.EqualFold(path.Ext(name), ".kml") {
			return Entry{}, false
		}
		return Entry{Base: strings.TrimSuffix(name, path.Ext(name))}, true
	}

	base := strings.TrimSpace(r.Base)
	if base == "" && r.KML != "" {
		kml := strings.TrimSpace(r.KML)
		base = strings.TrimSuffix(kml, path.Ext(kml))
	}
	return Entry{
		Base: base,
		Name: strings.TrimSpace(r.Name),
		MRA:  strings.TrimSpace(r.MRA),
	}, true
}

// Parse decodes a manifest. The format is chosen by the file name extension:
// .json, .yaml or .yml. Only a document that does not decode is an error; a
// bad element is rejected on its own so the rest of the manifest still loads.
func Parse(name string, data []byte) (*Manifest, error) {
	var raw []rawEntry
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}

	m := &Manifest{Entries: make([]Entry, 0, len(raw))}
	for i, r := range raw {
		e, ok := r.entry()
		if !ok {
			continue
		}
		if err := e.Validate(); err != nil {
			m.Rejected = append(m.Rejected, Rejected{
				Index: i,
				Base:  e.Base,
				Err:   fmt.Errorf("invalid manifest entry %d: %w", i, err),
			})
			continue
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}

// Validate checks the entry's fields
func (e Entry) Validate() error {
	return validate.Struct(e)
}

// DisplayName is the explicit name, or the base with its ordinal prefix
// removed and hyphens turned into spaces
func (e Entry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	if m := ordinalName.FindStringSubmatch(e.Base); m != nil {
		return strings.ReplaceAll(m[1], "-", " ")
	}
	return e.Base
}

// KMLFile, GPXFile and URLFile name the files that belong to the entry
func (e Entry) KMLFile() string { return e.Base + ".kml" }
func (e Entry) GPXFile() string { return e.Base + ".gpx" }
func (e Entry) URLFile() string { return e.Base + ".url" }

// Bases lists entry bases in manifest order
func (m *Manifest) Bases() []string {
	bases := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		bases[i] = e.Base
	}
	return bases
}
