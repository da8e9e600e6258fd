package envelope

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// SplitTimestamp parses an ISO-8601 millisecond timestamp (e.g.
// "2023-02-21T14:47:52.079Z") and splits its epoch value into integer
// seconds and a millisecond fraction, the two halves an ImageRequest
// carries. The split is injective: CombineTimestamp(SplitTimestamp(s))
// == s for any well-formed input s.
func SplitTimestamp(iso8601 string) (sec int64, fractionMS int64, err error) {
	t, err := time.Parse(timestampLayout, iso8601)
	if err != nil {
		return 0, 0, fmt.Errorf("envelope: bad @timestamp %q: %w", iso8601, err)
	}
	sec = t.Unix()
	fractionMS = int64(t.Nanosecond() / int(time.Millisecond))
	return sec, fractionMS, nil
}

// CombineTimestamp reverses SplitTimestamp, reconstructing the
// millisecond-precision ISO-8601 string.
func CombineTimestamp(sec, fractionMS int64) string {
	t := time.Unix(sec, fractionMS*int64(time.Millisecond)).UTC()
	return t.Format(timestampLayout)
}
