package chrono

import "time"

// TimeAPI is the clock every time-dependent component reads from.
//
// note: fault injection point
type TimeAPI interface {
	Now() time.Time
	Location() *time.Location
}

// StandardTime reads the system clock and forces it into a fixed location so
// that Year()/Month()/Day()/Hour() agree with the portal no matter where the
// process runs.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime loads the named IANA location (ex. Europe/Moscow).
func NewStandardTime(location string) (StandardTime, error) {
	loc, err := time.LoadLocation(location)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: loc}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// FixedTime always returns the same instant.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At
}

func (f FixedTime) Location() *time.Location {
	return f.At.Location()
}
