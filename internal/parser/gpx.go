package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"example.com/garmcloud/internal/domain"
)

// gpxDocument mirrors the GPX 1.1 track-point subset the converter reads:
// a single track, a single segment, an ordered list of points.
type gpxDocument struct {
	XMLName xml.Name `xml:"http://www.topografix.com/GPX/1/1 gpx"`
	Track   gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Segment gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat       float64 `xml:"lat,attr"`
	Lon       float64 `xml:"lon,attr"`
	Elevation float64 `xml:"ele"`
	Time      string  `xml:"time"`
}

// GPX parses GPX 1.1 track files. It extracts latitude, longitude,
// elevation, and timestamp per track-point and computes no summary fields;
// everything GPX does not carry stays absent.
type GPX struct{}

// Label implements Parser.
func (GPX) Label() string { return domain.ConverterGPX }

// Parse implements Parser.
func (g GPX) Parse(data []byte, uuid string) (*domain.Activity, error) {
	var doc gpxDocument
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, &ParseError{Converter: g.Label(), Cause: err}
	}

	points := doc.Track.Segment.Points
	activity := &domain.Activity{
		UUID:      uuid,
		Converter: g.Label(),
		Records:   make([]domain.Record, 0, len(points)),
	}

	for i, pt := range points {
		ts, err := parseGPXTime(pt.Time)
		if err != nil {
			return nil, &ParseError{Converter: g.Label(), Cause: fmt.Errorf("trkpt %d: %w", i, err)}
		}
		activity.Records = append(activity.Records, domain.Record{
			ActivityUUID: uuid,
			Timestamp:    domain.FormatTimestamp(ts),
			Lat:          domain.Float(pt.Lat),
			Lon:          domain.Float(pt.Lon),
			Elevation:    domain.Float(pt.Elevation),
		})
	}

	return activity, nil
}

// parseGPXTime accepts the timestamp shapes Garmin exports emit.
func parseGPXTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z07:00"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time value %q", value)
}
