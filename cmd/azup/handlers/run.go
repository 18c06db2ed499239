package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Run executes a shell command on a VM through the run-command extension and
// prints its output.
func Run(ctx context.Context, opts Options, name string, command []string, out io.Writer) error {
	env, err := setup(opts)
	if err != nil {
		return err
	}
	deployer, err := env.deployer()
	if err != nil {
		return err
	}

	output, err := deployer.RunCommand(ctx, name, strings.Join(command, " "))
	if err != nil {
		return fmt.Errorf("command failed on %s: %w", name, err)
	}
	fmt.Fprintln(out, output)
	return nil
}
