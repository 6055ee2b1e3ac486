package deploy

import "context"

// Backend is the uniform contract every protocol adapter implements.
// Adapters open one session per call and close it before returning.
type Backend interface {
	// TestAccess performs the cheapest round trip that proves the
	// destination is reachable and writable, without touching artifacts.
	TestAccess(ctx context.Context) error

	// Deploy pushes the artifact set, skipping unchanged files. A non-nil
	// error means the session itself failed (connect/auth); per-artifact
	// failures are reported inside the Result instead.
	Deploy(ctx context.Context, in *Input) (*Result, error)
}
