package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that marshals to a human-readable string
// ("30s", "1m30s") and accepts either a string or a number of seconds when
// unmarshalling, so exported workflow documents stay hand-editable and
// round-trip losslessly.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}

		*d = Duration(parsed)

		return nil
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))

		return nil
	default:
		return fmt.Errorf("invalid duration value %v (%T)", raw, raw)
	}
}
