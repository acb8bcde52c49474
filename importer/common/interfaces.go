package common

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrLoaderNotStarted is returned by drivers whose loader could not be brought up.
	ErrLoaderNotStarted = errors.New("loader not started")
	// ErrLoaderFailed is returned by Close when the loader did not shut down cleanly.
	ErrLoaderFailed = errors.New("loader did not exit cleanly")
)

// ExitDirective is the line that asks a loader to finish and exit.
const ExitDirective = ".exit"

// Loader accepts a stream of SQL text and writes it into a single database file.
type Loader interface {
	io.Writer
	// Close sends the exit directive and waits for the loader to finish.
	// A nil error means the database file is complete.
	Close() error
	// Abort stops the loader without waiting for pending work.
	Abort() error
}

// Driver defines the interface that must be implemented by a loader package.
type Driver interface {
	// Open starts a loader writing to dbPath.
	Open(ctx context.Context, dbPath string, opts LoaderOptions) (Loader, error)
}
