package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// stderrTailLimit bounds how much tool output is carried into errors.
const stderrTailLimit = 2048

// Runner executes external media tools.
type Runner interface {
	// Output runs the command and returns its trimmed stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// Run executes the command, discarding stdout.
	Run(ctx context.Context, name string, args ...string) error
}

// ToolError reports an external tool failure. Stderr holds the tail of the
// tool's diagnostic output exactly as emitted.
type ToolError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &ToolError{Tool: name, Err: err, Stderr: stderrTail(stderr.Bytes())}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ToolError{Tool: name, Err: err, Stderr: stderrTail(stderr.Bytes())}
	}
	return nil
}

func stderrTail(output []byte) string {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) > stderrTailLimit {
		trimmed = trimmed[len(trimmed)-stderrTailLimit:]
		if idx := bytes.IndexByte(trimmed, '\n'); idx >= 0 && idx < len(trimmed)-1 {
			trimmed = trimmed[idx+1:]
		}
	}
	return string(trimmed)
}
