// Package media runs the heavy per-operation work outside the Go process. Each
// operation maps to a sidecar command that reads a JSON request on stdin,
// prints "PROGRESS n" lines on stderr and writes a JSON result on stdout.
package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
)

var commandContext = exec.CommandContext

// ErrCancelled stops a run whose job was flagged for cancellation.
var ErrCancelled = errors.New("job cancelled")

const stderrTail = 20

// Request is written to the sidecar's stdin.
type Request struct {
	Operation    models.OperationType `json:"operation"`
	JobID        string               `json:"job_id"`
	Attempt      int                  `json:"attempt"`
	InputBucket  string               `json:"input_bucket"`
	OutputBucket string               `json:"output_bucket"`
	WorkDir      string               `json:"work_dir"`
	Payload      models.Payload       `json:"payload"`
}

// Result is what the sidecar prints on stdout. Fields are operation specific.
type Result struct {
	OutputKey string                `json:"output_key,omitempty"`
	Probe     *models.ProbeResult   `json:"probe,omitempty"`
	Clips     []models.DetectedClip `json:"clips,omitempty"`
}

// ProgressFunc receives a percentage in [0, 100]. A non-nil error kills the run
// and is returned from Execute.
type ProgressFunc func(percent float64) error

type Executor interface {
	Execute(ctx context.Context, req *Request, progress ProgressFunc) (*Result, error)
}

// ExitError carries the last stderr lines of a failed sidecar.
type ExitError struct {
	Operation models.OperationType
	Err       error
	Stderr    string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s sidecar failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s sidecar failed: %v: %s", e.Operation, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }

type CommandExecutor struct {
	commands map[models.OperationType][]string
	workRoot string
	logger   logger.Logger
}

func NewCommandExecutor(cfg *config.Config, log logger.Logger) *CommandExecutor {
	commands := make(map[models.OperationType][]string, len(cfg.Worker.Commands))
	for op, argv := range cfg.Worker.Commands {
		if len(argv) > 0 {
			commands[models.OperationType(op)] = argv
		}
	}
	root := cfg.Worker.TempDir
	if root == "" {
		root = os.TempDir()
	}
	return &CommandExecutor{commands: commands, workRoot: root, logger: log}
}

func (e *CommandExecutor) Execute(ctx context.Context, req *Request, progress ProgressFunc) (*Result, error) {
	argv, ok := e.commands[req.Operation]
	if !ok {
		return nil, fmt.Errorf("no sidecar configured for %s", req.Operation)
	}

	workDir := filepath.Join(e.workRoot, req.JobID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)
	req.WorkDir = workDir

	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sidecar request: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := commandContext(runCtx, argv[0], argv[1:]...) //nolint:gosec
	cmd.Dir = workDir
	cmd.Stdin = bytes.NewReader(input)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s sidecar: %w", req.Operation, err)
	}

	var (
		stopErr error
		tail    []string
	)
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		pct, isProgress := ParseProgress(line)
		if !isProgress {
			e.logger.Debugf("%s sidecar: %s", req.Operation, line)
			if tail = append(tail, line); len(tail) > stderrTail {
				tail = tail[1:]
			}
			continue
		}
		if progress == nil || stopErr != nil {
			continue
		}
		if err := progress(pct); err != nil {
			stopErr = err
			cancel()
		}
	}

	waitErr := cmd.Wait()
	if stopErr != nil {
		return nil, stopErr
	}
	if waitErr != nil {
		return nil, &ExitError{Operation: req.Operation, Err: waitErr, Stderr: strings.Join(tail, "\n")}
	}

	res := &Result{}
	if out := bytes.TrimSpace(stdout.Bytes()); len(out) > 0 {
		if err := json.Unmarshal(out, res); err != nil {
			return nil, fmt.Errorf("failed to decode %s sidecar result: %w", req.Operation, err)
		}
	}
	return res, nil
}

// ParseProgress reads a "PROGRESS n" line and clamps n to [0, 100].
func ParseProgress(line string) (float64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "PROGRESS ")
	if !ok {
		return 0, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(rest), "%"), 64)
	if err != nil {
		return 0, false
	}
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return pct, true
}

var _ Executor = (*CommandExecutor)(nil)
