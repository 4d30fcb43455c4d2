package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/molprop/platform/internal/domain/table"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/internal/infrastructure/monitoring/prometheus"
	"github.com/molprop/platform/pkg/errors"
)

const defaultPreviewRows = 10

// TableHandler accepts uploaded results tables and serves previews of them.
type TableHandler struct {
	uploadDir string
	metrics   *prometheus.Metrics
	logger    logging.Logger
}

// NewTableHandler stores uploads under uploadDir.  metrics may be nil.
func NewTableHandler(uploadDir string, metrics *prometheus.Metrics, log logging.Logger) *TableHandler {
	return &TableHandler{uploadDir: uploadDir, metrics: metrics, logger: log.Named("tables")}
}

// Upload receives a multipart table file, parses it to validate the format,
// and answers with the stored path plus a preview.
func (h *TableHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "missing multipart field \"file\""))
		return
	}
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeInternal, "cannot create upload directory"))
		return
	}

	// A fresh subdirectory per upload avoids collisions while keeping the
	// user's file name, which the format sniffing depends on.
	dest := filepath.Join(h.uploadDir, uuid.NewString()[:8], filepath.Base(file.Filename))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeInternal, "cannot create upload directory"))
		return
	}
	if err := c.SaveUploadedFile(file, dest); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeInternal, "cannot store upload"))
		return
	}

	t, err := table.Read(dest)
	if err != nil {
		os.Remove(dest)
		respondError(c, err)
		return
	}
	h.observeRows(dest, t.NumRows())
	h.logger.Info("table uploaded",
		logging.String("path", dest),
		logging.Int("rows", t.NumRows()))

	respond(c, http.StatusCreated, gin.H{
		"path":    dest,
		"info":    t.Info(),
		"preview": t.Head(defaultPreviewRows),
	})
}

// Preview reads rows from an existing table without storing anything.
func (h *TableHandler) Preview(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "query parameter \"path\" is required"))
		return
	}
	rows := defaultPreviewRows
	if v := c.Query("rows"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rows = n
		}
	}

	t, err := table.Read(path)
	if err != nil {
		respondError(c, err)
		return
	}
	h.observeRows(path, t.NumRows())
	respond(c, http.StatusOK, gin.H{
		"info":    t.Info(),
		"preview": t.Head(rows),
	})
}

func (h *TableHandler) observeRows(path string, rows int) {
	if h.metrics == nil {
		return
	}
	format, err := table.FormatForPath(path)
	if err != nil {
		return
	}
	h.metrics.TableRowsLoaded.WithLabelValues(string(format)).Observe(float64(rows))
}
