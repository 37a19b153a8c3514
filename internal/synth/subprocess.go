package synth

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// defaultRunTimeout bounds one engine invocation. Long units finish in
// a few seconds on any of the supported engines; anything slower is a
// hung process.
const defaultRunTimeout = 60 * time.Second

// runner executes engine binaries with timeout protection.
type runner struct {
	timeout time.Duration
}

func newRunner(timeout time.Duration) *runner {
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	return &runner{timeout: timeout}
}

// run executes a binary and returns its stdout. Stdin is attached
// before the process starts, so engines that read input immediately
// never race the writer.
func (r *runner) run(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}
	err := cmd.Wait()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%s timed out after %v", name, r.timeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}

	return stdout.Bytes(), nil
}

// firstLine extracts the leading line of a version banner.
func firstLine(output []byte) string {
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line)
}
