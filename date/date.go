// Package date provides a day granularity Date used for birth dates and fund
// start dates.
package date

import (
	"fmt"
	"math"
	"time"

	json "github.com/goccy/go-json"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02" // write date format

const Day = 24 * time.Hour

// daysPerYear is the average length of a year used to derive ages.
const daysPerYear = 365.25

// Date represent a date with no lower than day granularity.
//
// The zero Date is "unset": it encodes as an empty string.
type Date struct {
	y int
	m time.Month
	d int
}

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Time returns the day at midnight UTC.
func (d Date) Time() time.Time { return d.time() }

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Of returns the Date of t in t's location.
func Of(t time.Time) Date { return New(t.Date()) }

// IsZero reports whether d is the unset date.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Today returns the current date.
func Today() Date { return Of(time.Now()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// AddYears returns a new Date with the given number of years added.
func (d Date) AddYears(i int) Date { return New(d.y+i, d.m, d.d) }

// Year returns current year.
func (d Date) Year() int { return d.y }

// Day returns current day of the month.
func (d Date) Day() int { return d.d }

// String format the date in its standard format. The zero date is "".
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.time().Format(DateFormat)
}

// YearsUntil returns the number of whole average years (365.25 days) between d and x.
// It is negative when x is before d.
func (d Date) YearsUntil(x Date) int {
	days := x.time().Sub(d.time()).Hours() / 24
	return int(math.Floor(days / daysPerYear))
}

// Age returns the age on day 'on' of someone born on 'birth'.
func Age(birth, on Date) int { return birth.YearsUntil(on) }

// Parse parses a Date from a string. It is lenient and accepts formats like "2025-7-1".
func Parse(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	// We use a slightly more permisive format for read, to support 2025-7-1 instead of 2025-07-01
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, readDateFormat, err)
	}
	return New(on.Date()), nil
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON implements the json specific way to unmarshall a date from a json string.
//
// The service sometimes stores full timestamps, only the day part is kept.
func (j *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	if str == "" {
		*j = Date{}
		return nil
	}
	if len(str) > len(DateFormat) && str[len(DateFormat)] == 'T' {
		str = str[:len(DateFormat)]
	}
	d, err := Parse(str)
	if err != nil {
		return err
	}
	*j = d
	return nil
}

func (j Date) MarshalJSON() ([]byte, error) {
	str := j.String()
	return json.Marshal(&str)
}

// check that a Date pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)
