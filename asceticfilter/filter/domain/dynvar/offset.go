package dynvar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Unit string

const (
	UnitYear        Unit = "year"
	UnitMonth       Unit = "month"
	UnitWeek        Unit = "week"
	UnitDay         Unit = "day"
	UnitHour        Unit = "hour"
	UnitMinute      Unit = "minute"
	UnitSecond      Unit = "second"
	UnitMillisecond Unit = "millisecond"
)

var unitAliases = map[string]Unit{
	"y": UnitYear, "year": UnitYear, "years": UnitYear,
	"mo": UnitMonth, "month": UnitMonth, "months": UnitMonth,
	"w": UnitWeek, "week": UnitWeek, "weeks": UnitWeek,
	"d": UnitDay, "day": UnitDay, "days": UnitDay,
	"h": UnitHour, "hour": UnitHour, "hours": UnitHour,
	"m": UnitMinute, "min": UnitMinute, "mins": UnitMinute, "minute": UnitMinute, "minutes": UnitMinute,
	"s": UnitSecond, "sec": UnitSecond, "secs": UnitSecond, "second": UnitSecond, "seconds": UnitSecond,
	"ms": UnitMillisecond, "millisecond": UnitMillisecond, "milliseconds": UnitMillisecond,
}

// Offsets are bounded to ten thousand years either way so that Apply
// stays inside the range time.Time can represent.
const maxOffsetDays = 3_652_425

var maxOffset = map[Unit]int64{
	UnitYear:        10_000,
	UnitMonth:       120_000,
	UnitWeek:        maxOffsetDays / 7,
	UnitDay:         maxOffsetDays,
	UnitHour:        24 * maxOffsetDays,
	UnitMinute:      24 * 60 * maxOffsetDays,
	UnitSecond:      24 * 60 * 60 * maxOffsetDays,
	UnitMillisecond: 24 * 60 * 60 * 1_000 * maxOffsetDays,
}

var clockUnits = map[Unit]time.Duration{
	UnitHour:        time.Hour,
	UnitMinute:      time.Minute,
	UnitSecond:      time.Second,
	UnitMillisecond: time.Millisecond,
}

var offsetPattern = regexp.MustCompile(`^([+-]?)\s*(\d+)\s*([A-Za-z]+)$`)

// Offset is a signed calendar or clock adjustment like "-1 day".
type Offset struct {
	Amount int
	Unit   Unit
}

func ParseOffset(s string) (Offset, error) {
	m := offsetPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Offset{}, fmt.Errorf("invalid offset %q", s)
	}
	amount, err := strconv.Atoi(m[2])
	if err != nil {
		return Offset{}, fmt.Errorf("invalid offset amount %q", m[2])
	}
	unit, ok := unitAliases[strings.ToLower(m[3])]
	if !ok {
		return Offset{}, fmt.Errorf("unknown offset unit %q", m[3])
	}
	if int64(amount) > maxOffset[unit] {
		return Offset{}, fmt.Errorf("offset %q is out of range", s)
	}
	if m[1] == "-" {
		amount = -amount
	}
	return Offset{Amount: amount, Unit: unit}, nil
}

// Apply shifts t. Calendar units follow time.AddDate normalization.
// Clock units are split into whole days and a remainder shorter than a
// day, so large amounts never overflow time.Duration.
func (o Offset) Apply(t time.Time) time.Time {
	switch o.Unit {
	case UnitYear:
		return t.AddDate(o.Amount, 0, 0)
	case UnitMonth:
		return t.AddDate(0, o.Amount, 0)
	case UnitWeek:
		return t.AddDate(0, 0, 7*o.Amount)
	case UnitDay:
		return t.AddDate(0, 0, o.Amount)
	}
	if unit, ok := clockUnits[o.Unit]; ok {
		perDay := int(24 * time.Hour / unit)
		days, rest := o.Amount/perDay, o.Amount%perDay
		// UTC days are exactly 24 hours long.
		return t.UTC().AddDate(0, 0, days).Add(time.Duration(rest) * unit).In(t.Location())
	}
	return t
}
