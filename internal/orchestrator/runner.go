package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"taxsync/internal/logger"
	"taxsync/internal/models"
)

// defaultWaitDelay bounds how long Wait blocks on output pipes after a kill.
const defaultWaitDelay = 5 * time.Second

// ErrEmptyOutput is returned when an adapter process prints no result.
var ErrEmptyOutput = errors.New("adapter printed no result")

// Runner produces the record for one property.
type Runner interface {
	Run(ctx context.Context, prop models.Property) (*models.TaxRecord, error)
	Command(prop models.Property) []string
}

// ExecRunner runs each property in its own `taxsync lookup --json` process.
// The JSON record on stdout is the result channel; stderr carries logs.
type ExecRunner struct {
	stderr     io.Writer
	logger     *logger.Logger
	executable string
	globalArgs []string
	waitDelay  time.Duration
}

// NewExecRunner creates a runner that invokes executable. globalArgs are
// placed before the subcommand (config path, env file, log level).
func NewExecRunner(executable string, globalArgs []string, log *logger.Logger) *ExecRunner {
	if log == nil {
		log = logger.Discard()
	}

	return &ExecRunner{
		stderr:     os.Stderr,
		logger:     log,
		executable: executable,
		globalArgs: globalArgs,
		waitDelay:  defaultWaitDelay,
	}
}

// SetStderr redirects the adapter's log stream.
func (r *ExecRunner) SetStderr(w io.Writer) {
	r.stderr = w
}

// Command returns the argv used for prop.
func (r *ExecRunner) Command(prop models.Property) []string {
	args := append([]string{r.executable}, r.globalArgs...)
	args = append(args, "lookup", "--provider", string(prop.Provider), "--json")

	if prop.ID != "" {
		args = append(args, "--id", prop.ID)
	}

	if prop.Address != "" {
		args = append(args, "--address", prop.Address)
	}

	if prop.Parcel != "" {
		args = append(args, "--parcel", prop.Parcel)
	}

	if prop.Unit != "" {
		args = append(args, "--unit", prop.Unit)
	}

	return args
}

// Run starts the adapter process and decodes its record. When ctx ends the
// whole process tree is killed, browser children included.
func (r *ExecRunner) Run(ctx context.Context, prop models.Property) (*models.TaxRecord, error) {
	argv := r.Command(prop)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = r.stderr
	cmd.WaitDelay = r.waitDelay
	cmd.Cancel = func() error {
		return KillTree(int32(cmd.Process.Pid))
	}

	r.logger.Debug(fmt.Sprintf("🔎 exec %s", strings.Join(argv, " ")))

	runErr := cmd.Run()

	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", models.ErrTimeoutExceeded, prop)
		}

		return nil, ctx.Err()
	}

	rec, decodeErr := decodeRecord(stdout.Bytes())
	if decodeErr == nil {
		// A failed scrape attempt still exits non-zero after printing its record.
		if runErr != nil {
			r.logger.Debug(fmt.Sprintf("adapter for %s exited with %v", prop, runErr))
		}

		return rec, nil
	}

	if runErr != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrWorkerFailure, runErr)
	}

	return nil, fmt.Errorf("%w: %w", models.ErrWorkerFailure, decodeErr)
}

func decodeRecord(out []byte) (*models.TaxRecord, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}

	var rec models.TaxRecord
	if err := json.Unmarshal(out, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse adapter output: %w", err)
	}

	return &rec, nil
}

// KillTree kills pid and every descendant it can find.
func KillTree(pid int32) error {
	root, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	tree := []*process.Process{root}

	for i := 0; i < len(tree); i++ {
		children, err := tree[i].Children()
		if err != nil {
			continue
		}

		tree = append(tree, children...)
	}

	var errs []error

	for _, p := range tree {
		if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			if running, _ := p.IsRunning(); running {
				errs = append(errs, fmt.Errorf("kill %d: %w", p.Pid, err))
			}
		}
	}

	return errors.Join(errs...)
}
