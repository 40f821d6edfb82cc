package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"cv-pipeline/internal/domain/port"
)

// ExecRunner запускает внешние программы через os/exec
type ExecRunner struct{}

// NewExecRunner создаёт ExecRunner
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run выполняет команду. Таймаут, отсутствие бинарника и ненулевой код выхода возвращаются ошибкой.
func (r *ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.String(), stderr.String(), fmt.Errorf("%s timed out after %s", name, timeout)
	}
	if err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("run %s: %w", name, err)
	}
	return stdout.String(), stderr.String(), nil
}

var _ port.CommandRunner = (*ExecRunner)(nil)
