package routefile

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
)

// capture collects character data for one open element
type capture struct {
	depth int
	buf   strings.Builder
}

// placemarkState tracks the placemark currently being walked
type placemarkState struct {
	depth       int
	pointDepth  int // >0 while inside <Point>
	hasPoint    bool
	name        *capture
	nameDone    bool
	label       string
	desc        *capture
	descDone    bool
	description string
	pointCoords *string
}

// ExtractPath returns the route path from KML text. When the document holds
// several coordinate blocks the one with the most valid pairs is the path;
// smaller blocks are icons and waypoints.
func ExtractPath(text string) ([]geo.Point, error) {
	doc, err := ParseKML(text)
	if err != nil {
		return nil, err
	}
	return doc.Path, nil
}

// ParseKML walks a KML document once, collecting every <coordinates> block
// and every placemark that carries a <Point>. Elements are matched by local
// name so namespaced and namespace-less documents parse the same way.
func ParseKML(text string) (*Document, error) {
	dec := xml.NewDecoder(strings.NewReader(trimPreamble(text)))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		doc     Document
		blocks  []string
		depth   int
		coords  *capture
		docName *capture
		docDone bool
		pm      *placemarkState
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse KML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "Placemark":
				if pm == nil {
					pm = &placemarkState{depth: depth}
				}
			case "Point":
				if pm != nil && pm.pointDepth == 0 {
					pm.hasPoint = true
					pm.pointDepth = depth
				}
			case "coordinates":
				if coords == nil {
					coords = &capture{depth: depth}
				}
			case "name":
				if pm != nil {
					if pm.name == nil && !pm.nameDone {
						pm.name = &capture{depth: depth}
					}
				} else if docName == nil && !docDone {
					docName = &capture{depth: depth}
				}
			case "description":
				if pm != nil && pm.desc == nil && !pm.descDone {
					pm.desc = &capture{depth: depth}
				}
			}

		case xml.CharData:
			if coords != nil {
				coords.buf.Write(t)
			}
			if docName != nil {
				docName.buf.Write(t)
			}
			if pm != nil {
				if pm.name != nil {
					pm.name.buf.Write(t)
				}
				if pm.desc != nil {
					pm.desc.buf.Write(t)
				}
			}

		case xml.EndElement:
			if coords != nil && depth == coords.depth {
				block := coords.buf.String()
				blocks = append(blocks, block)
				if pm != nil && pm.pointDepth > 0 && pm.pointCoords == nil {
					pm.pointCoords = &block
				}
				coords = nil
			}
			if docName != nil && depth == docName.depth {
				doc.Name = strings.TrimSpace(docName.buf.String())
				docName = nil
				docDone = true
			}
			if pm != nil {
				if pm.name != nil && depth == pm.name.depth {
					pm.label = strings.TrimSpace(pm.name.buf.String())
					pm.name = nil
					pm.nameDone = true
				}
				if pm.desc != nil && depth == pm.desc.depth {
					pm.description = strings.TrimSpace(pm.desc.buf.String())
					pm.desc = nil
					pm.descDone = true
				}
				if pm.pointDepth == depth {
					pm.pointDepth = 0
				}
				if depth == pm.depth {
					if pm.hasPoint {
						doc.Markers = append(doc.Markers, pm.marker(len(doc.Markers)))
					}
					pm = nil
				}
			}
			depth--
		}
	}

	doc.Path = largestBlock(blocks)
	if len(doc.Path) == 0 {
		return nil, &EmptyPathError{Format: "kml", Blocks: len(blocks)}
	}
	return &doc, nil
}

func (pm *placemarkState) marker(index int) Marker {
	m := Marker{Index: index, Label: pm.label, Description: pm.description}
	if pm.pointCoords != nil {
		m.RawCoordinates = strings.TrimSpace(*pm.pointCoords)
		for _, tuple := range strings.Fields(*pm.pointCoords) {
			if p, ele, ok := parseTuple(tuple); ok {
				m.Point = &p
				m.Elevation = ele
				break
			}
		}
	}
	return m
}

// trimPreamble drops anything before the XML declaration, which some
// exporters prefix with a BOM or stray bytes
func trimPreamble(text string) string {
	if idx := strings.Index(text, "<?xml"); idx > 0 {
		return text[idx:]
	}
	return strings.TrimPrefix(text, "\ufeff")
}
