package run

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// logTailLines is how much of a step log is surfaced inline; the full log
// stays in the run's logs directory.
const logTailLines = 80

// Toolkit invokes the external MolProp toolkit console commands over a run
// directory.  Calling through subprocesses keeps the platform independent of
// the toolkit's internals; only the command-line contracts are relied on.
type Toolkit struct {
	calcCommand      string
	reportCommand    string
	picklistsCommand string
	stepTimeout      time.Duration
	logger           logging.Logger
}

// NewToolkit wires the configured command names.
func NewToolkit(calc, report, picklists string, stepTimeout time.Duration, logger logging.Logger) *Toolkit {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Toolkit{
		calcCommand:      calc,
		reportCommand:    report,
		picklistsCommand: picklists,
		stepTimeout:      stepTimeout,
		logger:           logger.Named("toolkit"),
	}
}

// Available reports whether the property calculator is on PATH.  The
// dashboard only enables the Generate workflow when this returns nil.
func (t *Toolkit) Available() error {
	if _, err := exec.LookPath(t.calcCommand); err != nil {
		return errors.Newf(errors.ErrCodeToolkitUnavailable,
			"%s not found; install the MolProp toolkit in this environment", t.calcCommand)
	}
	return nil
}

// VisualizeFunc lets the caller plug the in-process projection step into the
// pipeline without this package depending on the application layer.
type VisualizeFunc func(ctx context.Context, tablePath, outDir string) error

// Pipeline runs SMILES -> results table -> optional report/picklists/plot
// inside the run directory.  Failed or unavailable optional steps are
// recorded as skipped with a reason; only a calculator failure aborts.
func (t *Toolkit) Pipeline(ctx context.Context, rc Context, req analysis.PipelineRequest, visualize VisualizeFunc) (*analysis.PipelineResult, error) {
	if err := t.Available(); err != nil {
		return nil, err
	}

	outFormat := req.OutFormat
	if outFormat == "" {
		outFormat = "parquet"
	}
	result := &analysis.PipelineResult{LogTails: map[string]string{}}

	outPath := filepath.Join(rc.Outputs(), "results."+outFormat)
	code, tail, err := t.runStep(ctx, rc, "calc.log",
		t.calcCommand, req.InputPath, "-o", outPath)
	result.Steps = append(result.Steps, analysis.PipelineStep{
		Name:       "calc",
		Command:    t.calcCommand,
		ReturnCode: code,
	})
	result.LogTails["calc"] = tail
	if err != nil {
		return result, err
	}
	if code != 0 {
		return result, errors.Newf(errors.ErrCodeToolkitStepFailed,
			"%s exited with code %d", t.calcCommand, code)
	}
	result.ResultsTable = outPath

	if req.RunReport {
		t.optionalStep(ctx, rc, result, "report", t.reportCommand, outPath)
	}
	if req.RunPicklists {
		t.optionalStep(ctx, rc, result, "picklists", t.picklistsCommand, outPath, "--html")
	}
	if req.RunVisualize {
		step := analysis.PipelineStep{Name: "visualize"}
		if visualize == nil {
			step.Skipped = true
			step.Reason = "visualization not wired"
		} else if err := visualize(ctx, outPath, filepath.Join(rc.Outputs(), "viz")); err != nil {
			step.Skipped = true
			step.Reason = fmt.Sprintf("visualization failed: %v", err)
		}
		result.Steps = append(result.Steps, step)
	}
	return result, nil
}

// optionalStep runs a secondary toolkit command, degrading to a skip record
// when the command is missing or fails.
func (t *Toolkit) optionalStep(ctx context.Context, rc Context, result *analysis.PipelineResult, name, command string, args ...string) {
	if _, err := exec.LookPath(command); err != nil {
		result.Steps = append(result.Steps, analysis.PipelineStep{
			Name:    name,
			Skipped: true,
			Reason:  command + " not found",
		})
		return
	}
	code, tail, err := t.runStep(ctx, rc, name+".log", command, args...)
	step := analysis.PipelineStep{Name: name, Command: command, ReturnCode: code}
	if err != nil {
		step.Skipped = true
		step.Reason = err.Error()
	}
	result.Steps = append(result.Steps, step)
	result.LogTails[name] = tail
}

// runStep executes one command with combined output captured to the run's
// logs directory, returning the exit code and the log tail.
func (t *Toolkit) runStep(ctx context.Context, rc Context, logName, command string, args ...string) (int, string, error) {
	if t.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.stepTimeout)
		defer cancel()
	}

	t.logger.Info("running toolkit step",
		logging.String("command", command),
		logging.String("run", rc.ID()))

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = rc.Dir
	output, runErr := cmd.CombinedOutput()

	logPath := filepath.Join(rc.Logs(), logName)
	if writeErr := os.WriteFile(logPath, output, 0o644); writeErr != nil {
		t.logger.Warn("cannot write step log",
			logging.String("path", logPath), logging.Err(writeErr))
	}

	tail := tailLines(string(output), logTailLines)
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return exitErr.ExitCode(), tail, nil
		}
		return -1, tail, errors.Wrapf(runErr, errors.ErrCodeToolkitStepFailed,
			"cannot run %s", command)
	}
	return 0, tail, nil
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
