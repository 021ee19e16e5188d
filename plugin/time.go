package plugin

import "time"

func timeSinceMicros(t time.Time) int64 {
	return time.Since(t).Microseconds()
}
