package service

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the wire format of notification timestamps, e.g.
// 2016-04-18T17:42:10.770000. The fractional part carries one to six digits.
const TimestampLayout = "2006-01-02T15:04:05.999999"

const maxFractionDigits = 6

func ParseTimestamp(timestamp string) (time.Time, error) {
	if err := checkFraction(timestamp); err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrMalformedTimestamp, timestamp, err)
	}
	parsed, err := time.ParseInLocation(TimestampLayout, timestamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrMalformedTimestamp, timestamp, err)
	}
	return parsed, nil
}

// checkFraction rejects what time.Parse lets through for a .999999 layout: a missing
// fraction, a comma separator and more than six digits.
func checkFraction(timestamp string) error {
	_, fraction, ok := strings.Cut(timestamp, ".")
	if !ok {
		return fmt.Errorf("missing fractional seconds")
	}
	if len(fraction) == 0 || len(fraction) > maxFractionDigits {
		return fmt.Errorf("expected 1 to %d fractional digits, got %d", maxFractionDigits, len(fraction))
	}
	for _, c := range fraction {
		if c < '0' || c > '9' {
			return fmt.Errorf("fractional seconds %q are not digits", fraction)
		}
	}
	return nil
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}
