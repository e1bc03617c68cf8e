package sandbox

import "time"

// Policy defines resource limits for sandbox execution.
type Policy struct {
	MaxMemory  string        // Docker memory limit (e.g. "256m")
	MaxTimeout time.Duration // Upper bound for any requested timeout
	MaxOutput  int           // Bytes kept per output stream; <= 0 keeps all
	KillGrace  time.Duration // How long to wait for output pipes after a kill
	Network    bool          // Whether network access is allowed (docker)
	Images     []string      // Allowed Docker images
	TempDir    string        // Parent of per-run work dirs; "" uses os.TempDir
}

// DefaultMaxOutput is the per-stream capture limit of DefaultPolicy.
const DefaultMaxOutput = 1 << 20

// DefaultPolicy returns safe defaults for code execution.
func DefaultPolicy() Policy {
	return Policy{
		MaxMemory:  "256m",
		MaxTimeout: 5 * time.Minute,
		MaxOutput:  DefaultMaxOutput,
		KillGrace:  2 * time.Second,
		Network:    false,
		Images: []string{
			"python:3.12-slim",
		},
	}
}

// Clamp bounds a requested timeout by MaxTimeout. A non-positive request
// gets MaxTimeout.
func (p Policy) Clamp(d time.Duration) time.Duration {
	if p.MaxTimeout <= 0 {
		return d
	}
	if d <= 0 || d > p.MaxTimeout {
		return p.MaxTimeout
	}
	return d
}

// IsImageAllowed checks if an image is on the allowlist.
func (p Policy) IsImageAllowed(image string) bool {
	for _, allowed := range p.Images {
		if allowed == image {
			return true
		}
	}
	return false
}
