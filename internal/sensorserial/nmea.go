package sensorserial

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GPSFix is the decoded content of a $GPRMC sentence.
type GPSFix struct {
	LatitudeD     float64
	LongitudeD    float64
	SpeedMPS      float64
	CourseD       float64
	UnixTimestamp float64
	Valid         bool
}

// knotsToMPS converts speed in knots to meters per second.
const knotsToMPS = 0.514444

// ParseGPRMC parses a $GPRMC sentence into a GPSFix. Returns ErrParseSentence
// on malformed input.
func ParseGPRMC(line string) (*GPSFix, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ",")
	if len(fields) < 10 || !strings.HasPrefix(fields[0], "$GPRMC") {
		return nil, fmt.Errorf("%w: not a GPRMC sentence", ErrParseSentence)
	}

	status := fields[2]
	lat, err := parseLatLong(fields[3], fields[4])
	if err != nil {
		return nil, fmt.Errorf("%w: latitude: %v", ErrParseSentence, err)
	}
	long, err := parseLatLong(fields[5], fields[6])
	if err != nil {
		return nil, fmt.Errorf("%w: longitude: %v", ErrParseSentence, err)
	}

	speedKnots, err := parseFloatField(fields[7])
	if err != nil {
		return nil, fmt.Errorf("%w: speed: %v", ErrParseSentence, err)
	}
	course, err := parseFloatField(fields[8])
	if err != nil {
		return nil, fmt.Errorf("%w: course: %v", ErrParseSentence, err)
	}

	ts, err := parseRMCTimestamp(fields[1], fields[9])
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrParseSentence, err)
	}

	return &GPSFix{
		LatitudeD:     lat,
		LongitudeD:    long,
		SpeedMPS:      speedKnots * knotsToMPS,
		CourseD:       course,
		UnixTimestamp: ts,
		Valid:         status == "A",
	}, nil
}

// parseFloatField parses a field that may be empty (treated as 0).
func parseFloatField(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseLatLong parses an NMEA ddmm.mmmm or dddmm.mmmm coordinate, where the
// last two digits before the decimal point are minutes and the rest are
// degrees, negated by a S/W hemisphere letter.
func parseLatLong(raw, hemisphere string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	dotIdx := strings.Index(raw, ".")
	if dotIdx < 2 {
		return 0, fmt.Errorf("malformed coordinate %q", raw)
	}
	degreesStr := raw[:dotIdx-2]
	minutesStr := raw[dotIdx-2:]

	degrees, err := strconv.ParseFloat(degreesStr, 64)
	if err != nil {
		return 0, fmt.Errorf("degrees: %w", err)
	}
	minutes, err := strconv.ParseFloat(minutesStr, 64)
	if err != nil {
		return 0, fmt.Errorf("minutes: %w", err)
	}

	value := degrees + minutes/60
	switch hemisphere {
	case "S", "W":
		value = -value
	}
	return value, nil
}

// parseRMCTimestamp combines the hhmmss.sss time field and ddmmyy date field
// into a unix timestamp in seconds (UTC), with fractional seconds preserved.
func parseRMCTimestamp(hhmmss, ddmmyy string) (float64, error) {
	if len(hhmmss) < 6 || len(ddmmyy) < 6 {
		return 0, fmt.Errorf("malformed time/date fields %q %q", hhmmss, ddmmyy)
	}
	hh, err := strconv.Atoi(hhmmss[0:2])
	if err != nil {
		return 0, err
	}
	mm, err := strconv.Atoi(hhmmss[2:4])
	if err != nil {
		return 0, err
	}
	var fracSec float64
	secStr := hhmmss[4:]
	ss, err := strconv.ParseFloat(secStr, 64)
	if err != nil {
		return 0, err
	}
	fracSec = ss - float64(int(ss))

	dd, err := strconv.Atoi(ddmmyy[0:2])
	if err != nil {
		return 0, err
	}
	mon, err := strconv.Atoi(ddmmyy[2:4])
	if err != nil {
		return 0, err
	}
	yy, err := strconv.Atoi(ddmmyy[4:6])
	if err != nil {
		return 0, err
	}
	year := 2000 + yy

	t := time.Date(year, time.Month(mon), dd, hh, mm, int(ss), 0, time.UTC)
	return float64(t.Unix()) + fracSec, nil
}

// GSAFix is the decoded content of a $GPGSA sentence, relevant fields only.
type GSAFix struct {
	HDOP float64
	VDOP float64
}

// ParseGPGSA parses a $GPGSA sentence, extracting HDOP/VDOP (the trailing
// two numeric fields before the checksum).
func ParseGPGSA(line string) (*GSAFix, error) {
	line = strings.TrimRight(line, "\r\n")
	if star := strings.Index(line, "*"); star >= 0 {
		line = line[:star]
	}
	fields := strings.Split(line, ",")
	if len(fields) < 3 || !strings.HasPrefix(fields[0], "$GPGSA") {
		return nil, fmt.Errorf("%w: not a GPGSA sentence", ErrParseSentence)
	}
	pdop, err := parseFloatField(fields[len(fields)-3])
	if err != nil {
		return nil, fmt.Errorf("%w: pdop: %v", ErrParseSentence, err)
	}
	_ = pdop
	hdop, err := parseFloatField(fields[len(fields)-2])
	if err != nil {
		return nil, fmt.Errorf("%w: hdop: %v", ErrParseSentence, err)
	}
	vdop, err := parseFloatField(fields[len(fields)-1])
	if err != nil {
		return nil, fmt.Errorf("%w: vdop: %v", ErrParseSentence, err)
	}
	return &GSAFix{HDOP: hdop, VDOP: vdop}, nil
}

// GGAFix is the decoded content of a $GPGGA sentence, relevant fields only:
// fix quality (0 = no fix, 1 = GPS, 2 = DGPS, ...) and satellite count.
type GGAFix struct {
	FixQuality     int
	SatellitesUsed int
}

// ParseGPGGA parses a $GPGGA sentence's fix-quality and satellite-count
// fields, for opportunistic accuracy-scaling diagnostics (spec.md §4.2's
// required fields come from GPRMC/GPGSA; this is additive instrumentation
// only, grounded on original_source/control/sup800f.py's GGA handling).
func ParseGPGGA(line string) (*GGAFix, error) {
	line = strings.TrimRight(line, "\r\n")
	if star := strings.Index(line, "*"); star >= 0 {
		line = line[:star]
	}
	fields := strings.Split(line, ",")
	if len(fields) < 8 || !strings.HasPrefix(fields[0], "$GPGGA") {
		return nil, fmt.Errorf("%w: not a GPGGA sentence", ErrParseSentence)
	}
	fixQuality, err := strconv.Atoi(fields[6])
	if err != nil {
		return nil, fmt.Errorf("%w: fix quality: %v", ErrParseSentence, err)
	}
	numSat, err := strconv.Atoi(fields[7])
	if err != nil {
		return nil, fmt.Errorf("%w: satellite count: %v", ErrParseSentence, err)
	}
	return &GGAFix{FixQuality: fixQuality, SatellitesUsed: numSat}, nil
}

// IsCompassCalibratedSentence reports whether a $PSTI sentence indicates the
// module considers its compass calibrated (fields[2] == "1").
func IsCompassCalibratedSentence(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ",")
	if len(fields) < 3 || !strings.HasPrefix(fields[0], "$PSTI") {
		return false
	}
	return fields[2] == "1"
}
