// Package domain defines the canonical activity model shared by every
// converter and consumer.
package domain

import (
	"time"
)

// TimestampLayout is the normalized textual form every record timestamp is
// rendered in, regardless of the source format's native representation.
const TimestampLayout = "2006-01-02 15:04:05"

// Converter labels identify which parser produced an activity. The values
// travel on the wire (query param and JSON field), so they never change.
const (
	ConverterGPX = "GpxConverter"
	ConverterFIT = "FitConverter"
)

// Activity is one converted recording session. Summary fields are pointers:
// a nil value means the source format never carried the field, which is
// distinct from a measured zero and must survive serialization.
type Activity struct {
	UUID         string   `json:"uuid"`
	Converter    string   `json:"converter"`
	TotalTimeSec *float64 `json:"total_time_in_sec,omitempty"`
	TotalDistKm  *float64 `json:"total_dist_in_km,omitempty"`
	AvgSpeedKmh  *float64 `json:"avg_speed_in_kmh,omitempty"`
	AvgHeartRate *int     `json:"avg_heart_rate,omitempty"`
	Records      []Record `json:"records"`
}

// Record is one timestamped sample. Slice order in Activity.Records is the
// activity timeline and is preserved through every layer.
type Record struct {
	ActivityUUID string   `json:"activity_uuid"`
	Timestamp    string   `json:"timestamp"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	Distance     *float64 `json:"distance,omitempty"`
	Elevation    *float64 `json:"ele,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	HeartRate    *int     `json:"heart_rate,omitempty"`
}

// FormatTimestamp renders t in the canonical layout, second precision, UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Float returns a pointer to v. Parsers use it to mark a field as present.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
