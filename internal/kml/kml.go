// Package kml writes flight paths as KML line strings for Google Earth.
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Namespace is the KML 2.2 namespace.
const Namespace = "http://www.opengis.net/kml/2.2"

// Style ids used by NewFlightDocument.
const (
	OriginalStyle      = "cyanLineGreenPoly"
	ReconstructedStyle = "purpleLineGreenPoly"
)

// Coordinate is one track vertex in degrees and metres.
type Coordinate struct {
	Longitude float64
	Latitude  float64
	Altitude  float64
}

// Document is a KML document of styled line-string placemarks.
type Document struct {
	Styles     []Style
	Placemarks []Placemark
}

// Style pairs a line style with a polygon fill colour. Colours are aabbggrr
// hex strings as KML expects.
type Style struct {
	ID        string
	LineColor string
	LineWidth int
	PolyColor string
}

// Placemark is a named, extruded line string with absolute altitudes.
type Placemark struct {
	Name        string
	Description string
	StyleID     string
	Coordinates []Coordinate
}

// NewFlightDocument builds the two-track document comparing the recorded
// flight path with the reconstructed one.
func NewFlightDocument(original, reconstructed []Coordinate) Document {
	return Document{
		Styles: []Style{
			{ID: OriginalStyle, LineColor: "7f00ffff", LineWidth: 2, PolyColor: "7f00ff00"},
			{ID: ReconstructedStyle, LineColor: "7fff00ff", LineWidth: 2, PolyColor: "7f00ff00"},
		},
		Placemarks: []Placemark{
			{
				Name:        "Original Flight Path",
				Description: "Original Flight Path",
				StyleID:     OriginalStyle,
				Coordinates: original,
			},
			{
				Name:        "Reconstructed Flight Path",
				Description: "Reconstructed Flight Path",
				StyleID:     ReconstructedStyle,
				Coordinates: reconstructed,
			},
		},
	}
}

type xmlKML struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document xmlDocument `xml:"Document"`
}

type xmlDocument struct {
	Styles     []xmlStyle     `xml:"Style"`
	Placemarks []xmlPlacemark `xml:"Placemark"`
}

type xmlStyle struct {
	ID        string `xml:"id,attr"`
	LineStyle struct {
		Color string `xml:"color"`
		Width int    `xml:"width"`
	} `xml:"LineStyle"`
	PolyStyle struct {
		Color string `xml:"color"`
	} `xml:"PolyStyle"`
}

type xmlPlacemark struct {
	Name        string        `xml:"name"`
	Visibility  int           `xml:"visibility"`
	Description string        `xml:"description"`
	StyleURL    string        `xml:"styleUrl"`
	LineString  xmlLineString `xml:"LineString"`
}

type xmlLineString struct {
	Extrude      int            `xml:"extrude"`
	AltitudeMode string         `xml:"altitudeMode"`
	Coordinates  xmlCoordinates `xml:"coordinates"`
}

// xmlCoordinates is written raw so the tuples keep one vertex per line.
type xmlCoordinates struct {
	Tuples string `xml:",innerxml"`
}

// Encode writes doc as an indented KML document.
func Encode(w io.Writer, doc Document) error {
	out := xmlKML{Xmlns: Namespace}
	for _, s := range doc.Styles {
		var xs xmlStyle
		xs.ID = s.ID
		xs.LineStyle.Color = s.LineColor
		xs.LineStyle.Width = s.LineWidth
		xs.PolyStyle.Color = s.PolyColor
		out.Document.Styles = append(out.Document.Styles, xs)
	}
	for _, p := range doc.Placemarks {
		out.Document.Placemarks = append(out.Document.Placemarks, xmlPlacemark{
			Name:        p.Name,
			Visibility:  1,
			Description: p.Description,
			StyleURL:    "#" + p.StyleID,
			LineString: xmlLineString{
				Extrude:      1,
				AltitudeMode: "absolute",
				Coordinates:  xmlCoordinates{Tuples: formatCoordinates(p.Coordinates)},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func formatCoordinates(cs []Coordinate) string {
	var b strings.Builder
	b.WriteByte('\n')
	for _, c := range cs {
		fmt.Fprintf(&b, "%.9f,%.9f,%.1f\n", c.Longitude, c.Latitude, c.Altitude)
	}
	return b.String()
}

// Decode reads the placemark tracks back from a KML document written by
// Encode.
func Decode(r io.Reader) (Document, error) {
	var in xmlKML
	if err := xml.NewDecoder(r).Decode(&in); err != nil {
		return Document{}, fmt.Errorf("decode kml: %w", err)
	}

	var doc Document
	for _, s := range in.Document.Styles {
		doc.Styles = append(doc.Styles, Style{
			ID:        s.ID,
			LineColor: s.LineStyle.Color,
			LineWidth: s.LineStyle.Width,
			PolyColor: s.PolyStyle.Color,
		})
	}
	for _, p := range in.Document.Placemarks {
		coords, err := parseCoordinates(p.LineString.Coordinates.Tuples)
		if err != nil {
			return Document{}, fmt.Errorf("placemark %q: %w", p.Name, err)
		}
		doc.Placemarks = append(doc.Placemarks, Placemark{
			Name:        p.Name,
			Description: p.Description,
			StyleID:     strings.TrimPrefix(p.StyleURL, "#"),
			Coordinates: coords,
		})
	}
	return doc, nil
}

func parseCoordinates(s string) ([]Coordinate, error) {
	var out []Coordinate
	for _, field := range strings.Fields(s) {
		parts := strings.Split(field, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad coordinate %q", field)
		}
		var v [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("bad coordinate %q: %w", field, err)
			}
			v[i] = f
		}
		out = append(out, Coordinate{Longitude: v[0], Latitude: v[1], Altitude: v[2]})
	}
	return out, nil
}
