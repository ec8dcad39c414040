package keyextract

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// ExecRunner executes commands through os/exec. The command inherits the
// configured writers so tool output stays visible to the operator; nil
// writers default to the process stdout/stderr.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts the command and blocks until it exits. Cancelling the context
// kills the process; there is no other timeout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}
