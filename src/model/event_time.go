package model

import (
	"strconv"
	"time"
)

// EventTime decodes engine-published timestamps, which arrive either as
// RFC3339 strings or unix milliseconds.
type EventTime struct {
	time.Time
}

func (t *EventTime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		return nil
	}

	if s[0] == '"' {
		parsed, err := time.Parse(time.RFC3339, s[1:len(s)-1])
		if err != nil {
			return err
		}
		t.Time = parsed.UTC()
		return nil
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}
