package engine

import "context"

type Mode string

const (
	// ModeBulk is the fast, unsafe configuration used while loading data.
	ModeBulk Mode = "bulk"
	// ModeBench is the durable configuration trials are measured against.
	ModeBench Mode = "bench"
)

// Lifecycle controls one database engine under test.
type Lifecycle interface {
	Init(ctx context.Context) error
	Start(ctx context.Context, mode Mode) error
	Stop(ctx context.Context) error
	// Ping reports whether the engine answers at the protocol level.
	Ping(ctx context.Context) bool
	// Diagnostics returns the engine's recent log output, best effort.
	Diagnostics(ctx context.Context) string
	Name() string
	// Process is the executable name of the engine's server process.
	Process() string
	Close() error
}

// Prober performs a protocol-level liveness check.
type Prober interface {
	Ping(ctx context.Context) error
	Close() error
}
