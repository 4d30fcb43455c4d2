// Package run manages analysis run directories: creation, metadata, input
// classification, zip bundling, and execution of the external MolProp toolkit
// commands.  Every dashboard action and worker job lives inside one run
// directory so its inputs, outputs, and logs travel together.
package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/molprop/platform/pkg/errors"
)

// Standard subdirectories of a run.
const (
	InputsDir  = "inputs"
	OutputsDir = "outputs"
	LogsDir    = "logs"
)

// MetadataFile is the run's JSON metadata file name.
const MetadataFile = "run.json"

// runPrefix keeps folder names short and filesystem-safe.
const runPrefix = "run_"

// Context identifies one run directory.
type Context struct {
	Dir       string    `json:"dir"`
	CreatedAt time.Time `json:"created_at"`
}

// ID is the run's directory base name, used as its public identifier.
func (c Context) ID() string { return filepath.Base(c.Dir) }

// Inputs returns the absolute inputs directory.
func (c Context) Inputs() string { return filepath.Join(c.Dir, InputsDir) }

// Outputs returns the absolute outputs directory.
func (c Context) Outputs() string { return filepath.Join(c.Dir, OutputsDir) }

// Logs returns the absolute logs directory.
func (c Context) Logs() string { return filepath.Join(c.Dir, LogsDir) }

// New creates a fresh run directory under baseDir with the inputs, outputs,
// and logs subdirectories.  The name embeds both a human-readable timestamp
// and the Unix time so sorted listings read chronologically.
func New(baseDir string) (Context, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return Context{}, errors.Wrap(err, errors.ErrCodeRunCreateFailed, "cannot create runs base directory")
	}

	now := time.Now()
	// UnixNano keeps names unique when two runs start within a second;
	// the fixed digit count keeps lexicographic order chronological.
	name := fmt.Sprintf("%s%s_%d", runPrefix, now.Format("20060102_150405"), now.UnixNano())
	dir := filepath.Join(baseDir, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return Context{}, errors.Wrap(err, errors.ErrCodeRunCreateFailed, "cannot create run directory")
	}
	for _, sub := range []string{InputsDir, OutputsDir, LogsDir} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			return Context{}, errors.Wrap(err, errors.ErrCodeRunCreateFailed, "cannot create run subdirectory")
		}
	}
	return Context{Dir: dir, CreatedAt: now}, nil
}

// Open resolves an existing run by id under baseDir.  The id must be a bare
// directory name; anything resembling a path is rejected before touching the
// filesystem.
func Open(baseDir, id string) (Context, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return Context{}, errors.Newf(errors.ErrCodeRunNotFound, "invalid run id %q", id)
	}
	dir := filepath.Join(baseDir, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Context{}, errors.Newf(errors.ErrCodeRunNotFound, "run %q not found", id)
	}
	return Context{Dir: dir, CreatedAt: info.ModTime()}, nil
}

// List returns all runs under baseDir, newest first.
func List(baseDir string) ([]Context, error) {
	entries, err := os.ReadDir(baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot list runs directory")
	}
	var runs []Context
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), runPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, Context{
			Dir:       filepath.Join(baseDir, e.Name()),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID() > runs[j].ID() })
	return runs, nil
}

// SaveInput writes uploaded bytes into the run's inputs directory and returns
// the stored path.  The file name is flattened to its base to keep uploads
// from escaping the run.
func (c Context) SaveInput(name string, data []byte) (string, error) {
	dest := filepath.Join(c.Inputs(), filepath.Base(name))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeRunCreateFailed, "cannot save uploaded input")
	}
	return dest, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Input Classification
// ─────────────────────────────────────────────────────────────────────────────

// InputKind classifies an uploaded file by extension.
type InputKind string

const (
	InputSMILES  InputKind = "smiles"
	InputTable   InputKind = "table"
	InputUnknown InputKind = "unknown"
)

// DetectInputKind classifies a path the way the dashboard decides which
// workflow to offer: SMILES lists feed the toolkit pipeline, tables feed the
// analyses directly.
func DetectInputKind(path string) InputKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".smi", ".smiles":
		return InputSMILES
	case ".csv", ".tsv", ".parquet":
		return InputTable
	default:
		return InputUnknown
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Metadata
// ─────────────────────────────────────────────────────────────────────────────

// WriteMetadata stores run.json with the created-at stamp, the platform
// runtime version, and the caller's payload.  Map keys serialize sorted, so
// the file is diff-friendly across runs.
func (c Context) WriteMetadata(payload map[string]any) (string, error) {
	meta := map[string]any{
		"created_at": c.CreatedAt.Unix(),
		"runtime":    runtime.Version(),
	}
	for k, v := range payload {
		meta[k] = v
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "cannot encode run metadata")
	}
	out := filepath.Join(c.Dir, MetadataFile)
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "cannot write run metadata")
	}
	return out, nil
}

// ReadMetadata loads run.json if present; a missing file yields an empty map
// because early runs may predate metadata writing.
func (c Context) ReadMetadata() (map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join(c.Dir, MetadataFile))
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot read run metadata")
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "run metadata is not valid JSON")
	}
	return meta, nil
}
