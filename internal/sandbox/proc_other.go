//go:build !unix

package sandbox

import "os/exec"

// configureProcessGroup keeps exec's default cancellation (kill the child).
func configureProcessGroup(cmd *exec.Cmd) {}
