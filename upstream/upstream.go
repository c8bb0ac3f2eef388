// Package upstream implements [docchat.Provider] for a text-generation
// service that accepts a form-encoded POST and streams its answer back as
// "data: "-prefixed lines until it closes the connection.
package upstream

import "time"

const (
	defaultPath        = "/generate"
	defaultIdleTimeout = 60 * time.Second
	defaultBackoff     = 250 * time.Millisecond

	// maxErrorBody bounds how much of a non-2xx body ends up in an error.
	maxErrorBody = 512
)
