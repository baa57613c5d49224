package repository

import "fmt"

// Driver names accepted by Open.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open returns the backend for driver, wrapped with instrumentation.
func Open(driver, path string, opts ...Option) (*Instrumented, error) {
	var (
		b   Backend
		err error
	)
	switch driver {
	case DriverBolt:
		b, err = OpenBolt(path)
	case DriverSQLite:
		b, err = OpenSQLite(path)
	case DriverMemory:
		b = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(b, opts...), nil
}
