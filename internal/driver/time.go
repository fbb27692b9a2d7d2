package driver

import "time"

// clockStart anchors nowUs to the monotonic clock reading taken when the
// package was initialized.
var clockStart = time.Now()

// nowUs returns a monotonic microsecond timestamp suitable for measuring
// elapsed durations between two calls; not a wall-clock value.
func nowUs() uint64 {
	return uint64(time.Since(clockStart).Microseconds())
}
