package testutils

import (
	"fmt"
	"net"
	"time"
)

/*
General purpose test utilities.
*/

////////////////////////////////////////////////////////////////////////////////

// GetOpenPort returns an open port that can be used for testing.
func GetOpenPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FixedClock returns a clock that always reads t, for engines whose
// timestamps tests assert on.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}
