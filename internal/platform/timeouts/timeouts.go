// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values prevents drift between process boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// Annotate caps the wait time for one annotation generator call. The
// generator is an LLM endpoint and can take several seconds on cold paths.
const Annotate = 30 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
