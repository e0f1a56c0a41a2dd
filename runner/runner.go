// Package runner adapts the host test runner. It never schedules or
// executes tests itself; it either execs the Go toolchain (which owns all
// scheduling) or reads an event stream the toolchain already produced, and
// turns that stream into lifecycle hook dispatches.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rcbops/zigzag-reporter/types"
)

// OpenInput resolves a stream source: "-" is stdin, anything else a file
// path.
func OpenInput(input string) (io.ReadCloser, error) {
	if input == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream %q: %w", input, err)
	}
	return f, nil
}

// Exec runs 'go test -json' for the given packages and feeds its stdout to
// the collector. A non-zero exit from the toolchain because of failing
// tests is not an error here; the failures are already in the result.
func Exec(ctx context.Context, logger log.Logger, goBinary string, packages []string, c *Collector) (*types.RunResult, error) {
	if len(packages) == 0 {
		packages = []string{"./..."}
	}
	args := append([]string{"test", "-json"}, packages...)

	cmd := exec.CommandContext(ctx, goBinary, args...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	logger.Info("Running host test runner", "binary", goBinary, "packages", packages)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", goBinary, err)
	}

	result, procErr := c.Process(stdout)

	if waitErr := cmd.Wait(); waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("host test runner failed: %w", waitErr)
		}
		logger.Debug("Host test runner exited non-zero", "err", waitErr)
	}
	return result, procErr
}
