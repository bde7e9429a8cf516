package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// Duration is stored as nanoseconds and travels as an ISO-8601 string.
type Duration time.Duration

func ParseDuration(s string) (Duration, error) {
	if d, err := duration.Parse(s); err == nil {
		return Duration(d.ToTimeDuration()), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return Duration(d), nil
	}
	return 0, fmt.Errorf("%q is not an ISO-8601 duration", s)
}

func (d Duration) String() string {
	return duration.Format(time.Duration(d))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) Value() (driver.Value, error) {
	return int64(d), nil
}

func (d *Duration) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*d = Duration(v)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("cannot scan %T into Duration", src)
	}
	return nil
}
