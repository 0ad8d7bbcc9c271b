package parser

import (
	"bytes"
	"math"

	"github.com/tormoder/fit"

	"example.com/garmcloud/internal/domain"
)

// FIT parses Garmin FIT activity files. Summary fields come from the
// session message, per-sample fields from record messages. Values are
// normalized to the units the rest of the system speaks: seconds,
// kilometres, km/h, metres, degrees.
type FIT struct{}

// Label implements Parser.
func (FIT) Label() string { return domain.ConverterFIT }

// Parse implements Parser.
func (f FIT) Parse(data []byte, uuid string) (*domain.Activity, error) {
	decoded, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Converter: f.Label(), Cause: err}
	}

	activityFile, err := decoded.Activity()
	if err != nil {
		return nil, &ParseError{Converter: f.Label(), Cause: err}
	}

	activity := &domain.Activity{
		UUID:      uuid,
		Converter: f.Label(),
		Records:   make([]domain.Record, 0, len(activityFile.Records)),
	}

	if len(activityFile.Sessions) > 0 {
		applySession(activity, activityFile.Sessions[0])
	}

	for _, msg := range activityFile.Records {
		rec := domain.Record{ActivityUUID: uuid}
		if !msg.Timestamp.IsZero() {
			rec.Timestamp = domain.FormatTimestamp(msg.Timestamp)
		}
		if deg := msg.PositionLat.Degrees(); !math.IsNaN(deg) {
			rec.Lat = domain.Float(deg)
		}
		if deg := msg.PositionLong.Degrees(); !math.IsNaN(deg) {
			rec.Lon = domain.Float(deg)
		}
		if dist := msg.GetDistanceScaled(); !math.IsNaN(dist) {
			rec.Distance = domain.Float(dist / 1000) // m -> km
		}
		if ele := firstValid(msg.GetEnhancedAltitudeScaled(), msg.GetAltitudeScaled()); !math.IsNaN(ele) {
			rec.Elevation = domain.Float(ele)
		}
		if speed := firstValid(msg.GetEnhancedSpeedScaled(), msg.GetSpeedScaled()); !math.IsNaN(speed) {
			rec.Speed = domain.Float(speed * 3.6) // m/s -> km/h
		}
		if msg.HeartRate != 0xFF {
			rec.HeartRate = domain.Int(int(msg.HeartRate))
		}
		activity.Records = append(activity.Records, rec)
	}

	return activity, nil
}

func applySession(activity *domain.Activity, session *fit.SessionMsg) {
	if elapsed := session.GetTotalElapsedTimeScaled(); !math.IsNaN(elapsed) {
		activity.TotalTimeSec = domain.Float(elapsed)
	}
	if dist := session.GetTotalDistanceScaled(); !math.IsNaN(dist) {
		activity.TotalDistKm = domain.Float(dist / 1000) // m -> km
	}
	if speed := firstValid(session.GetEnhancedAvgSpeedScaled(), session.GetAvgSpeedScaled()); !math.IsNaN(speed) {
		activity.AvgSpeedKmh = domain.Float(speed * 3.6) // m/s -> km/h
	}
	if session.AvgHeartRate != 0xFF {
		activity.AvgHeartRate = domain.Int(int(session.AvgHeartRate))
	}
}

// firstValid returns the enhanced value when the device recorded one and
// the base-field value otherwise.
func firstValid(enhanced, base float64) float64 {
	if !math.IsNaN(enhanced) {
		return enhanced
	}
	return base
}
