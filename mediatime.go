package capturekit

import "fmt"

// TimeFlags qualifies a MediaTime value.
type TimeFlags uint32

const (
	TimeFlagValid            TimeFlags = 0x1
	TimeFlagIndefinite       TimeFlags = 0x2
	TimeFlagPositiveInfinity TimeFlags = 0x4
	TimeFlagNegativeInfinity TimeFlags = 0x8
	TimeFlagRounded          TimeFlags = 0x10
)

// MediaTime is a rational timestamp: Value counts of a clock ticking Timescale
// times per second. The zero MediaTime is invalid (no flags set).
type MediaTime struct {
	Value     int64
	Timescale int32
	Flags     TimeFlags
	Epoch     int64
}

// MediaTimeInvalid is the canonical invalid timestamp.
var MediaTimeInvalid = MediaTime{}

// MediaTimeZero is a valid timestamp at zero seconds.
var MediaTimeZero = MediaTime{Timescale: 1, Flags: TimeFlagValid}

// NewMediaTime builds a valid timestamp from a value and timescale.
func NewMediaTime(value int64, timescale int32) MediaTime {
	return MediaTime{Value: value, Timescale: timescale, Flags: TimeFlagValid}
}

func (t MediaTime) IsValid() bool      { return t.Flags&TimeFlagValid != 0 }
func (t MediaTime) IsIndefinite() bool { return t.Flags&TimeFlagIndefinite != 0 }
func (t MediaTime) IsRounded() bool    { return t.Flags&TimeFlagRounded != 0 }

// IsInfinite reports positive or negative infinity.
func (t MediaTime) IsInfinite() bool {
	return t.Flags&(TimeFlagPositiveInfinity|TimeFlagNegativeInfinity) != 0
}

// IsNumeric reports whether Seconds yields a meaningful finite value.
func (t MediaTime) IsNumeric() bool {
	return t.IsValid() && !t.IsIndefinite() && !t.IsInfinite() && t.Timescale != 0
}

// Seconds converts to floating-point seconds. Non-numeric times yield 0.
func (t MediaTime) Seconds() float64 {
	if !t.IsNumeric() {
		return 0
	}
	return float64(t.Value) / float64(t.Timescale)
}

func (t MediaTime) String() string {
	switch {
	case !t.IsValid():
		return "invalid"
	case t.IsIndefinite():
		return "indefinite"
	case t.Flags&TimeFlagPositiveInfinity != 0:
		return "+inf"
	case t.Flags&TimeFlagNegativeInfinity != 0:
		return "-inf"
	default:
		return fmt.Sprintf("%d/%d", t.Value, t.Timescale)
	}
}
