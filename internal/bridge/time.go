package bridge

import (
	"strconv"
	"time"
)

// Millis is a timestamp that marshals as milliseconds since the Unix epoch,
// the timestamp representation of every bridge response.
type Millis time.Time

// MarshalJSON renders the timestamp as an integer millisecond count.
func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Time(m).UnixMilli(), 10), nil
}

// UnmarshalJSON parses an integer millisecond count.
func (m *Millis) UnmarshalJSON(data []byte) error {
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*m = Millis(time.UnixMilli(ms))
	return nil
}

// Time returns the underlying time.Time.
func (m Millis) Time() time.Time { return time.Time(m) }
