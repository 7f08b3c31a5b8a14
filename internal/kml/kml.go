// Package kml extracts polygon placemarks from KML documents.
package kml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/regions/internal/geometry"
	"github.com/onnwee/regions/internal/region"
)

// MinCoordinates is the number of coordinate pairs a placemark needs to
// become a region.
const MinCoordinates = 3

// Tags applied to every imported region.
var ImportTags = []string{"imported", "kml"}

// ErrNoPlacemarks is returned by Import when the document yields no polygon.
var ErrNoPlacemarks = errors.New("no valid polygon placemarks found")

// Placemark is one polygon read from a document.
type Placemark struct {
	// Index is the 1-based position among all Placemark elements, including
	// skipped ones.
	Index       int
	Name        string
	Description string
	Coordinates []geometry.Point
}

type placemarkXML struct {
	Name        string       `xml:"name"`
	Description string       `xml:"description"`
	Polygon     *polygonXML  `xml:"Polygon"`
	Multi       []polygonXML `xml:"MultiGeometry>Polygon"`
}

type polygonXML struct {
	Outer string `xml:"outerBoundaryIs>LinearRing>coordinates"`
}

// Result summarizes a parse.
type Result struct {
	Placemarks []Placemark
	// Skipped counts placemarks with no polygon or too few coordinates.
	Skipped int
}

// Parse streams r and returns the polygon placemarks in document order.
// Placemarks holding only Point or LineString geometry, or fewer than
// MinCoordinates valid pairs, are skipped.
func Parse(r io.Reader) (Result, error) {
	var res Result
	dec := xml.NewDecoder(r)
	// Tolerate documents declaring non-UTF-8 charsets; coordinates are ASCII.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	seen := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("invalid KML document: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Placemark" {
			continue
		}
		seen++

		var pm placemarkXML
		if err := dec.DecodeElement(&pm, &start); err != nil {
			return res, fmt.Errorf("invalid placemark %d: %w", seen, err)
		}

		var raw string
		switch {
		case pm.Polygon != nil:
			raw = pm.Polygon.Outer
		case len(pm.Multi) > 0:
			raw = pm.Multi[0].Outer
		}
		coords := ParseCoordinates(raw)
		if len(coords) < MinCoordinates {
			res.Skipped++
			continue
		}

		// Balloon HTML and long titles are cut to the region field limits
		// so one placemark cannot reject the document.
		name := region.SanitizeName(pm.Name)
		if name == "" {
			name = fmt.Sprintf("Region %d", seen)
		}
		res.Placemarks = append(res.Placemarks, Placemark{
			Index:       seen,
			Name:        name,
			Description: region.SanitizeDescription(pm.Description),
			Coordinates: coords,
		})
	}
	return res, nil
}

// ParseCoordinates reads whitespace-separated "lon,lat[,alt]" tuples.
// Tuples that do not parse are dropped.
func ParseCoordinates(s string) []geometry.Point {
	fields := strings.Fields(s)
	points := make([]geometry.Point, 0, len(fields))
	for _, f := range fields {
		parts := strings.Split(f, ",")
		if len(parts) < 2 {
			continue
		}
		lng, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		p := geometry.Point{Lat: lat, Lng: lng}
		if !p.Valid() {
			continue
		}
		points = append(points, p)
	}
	return points
}

// Inputs converts placemarks into region creation inputs on layerID.
func Inputs(placemarks []Placemark, layerID string, at time.Time) []region.NewRegion {
	in := make([]region.NewRegion, 0, len(placemarks))
	for _, pm := range placemarks {
		in = append(in, region.NewRegion{
			Name:        pm.Name,
			Description: pm.Description,
			Kind:        geometry.KindPolygon,
			Vertices:    pm.Coordinates,
			LayerID:     layerID,
			Tags:        append([]string(nil), ImportTags...),
			Metadata: map[string]string{
				"source":     "kml",
				"importedAt": at.UTC().Format(time.RFC3339),
			},
		})
	}
	return in
}

// Import parses r and adds its placemarks to e as one bulk history entry.
func Import(ctx context.Context, e *region.Engine, r io.Reader, layerID string) ([]*region.Region, Result, error) {
	res, err := Parse(r)
	if err != nil {
		return nil, res, &region.ValidationError{Field: "document", Message: err.Error()}
	}
	if len(res.Placemarks) == 0 {
		return nil, res, fmt.Errorf("%w: %w", region.ErrValidation, ErrNoPlacemarks)
	}
	in := Inputs(res.Placemarks, layerID, time.Now())
	created, err := e.Import(ctx, in, fmt.Sprintf("Imported %d regions from KML", len(in)))
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}
