package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour. MaxRows caps inline exports and
// AsyncMaxRows caps queued ones.
type ExportConfig struct {
	MaxRows      int
	AsyncMaxRows int
}

// ExportDocument is a rendered report ready to be served or written to disk.
type ExportDocument struct {
	Filename    string
	ContentType string
	Rows        int
	Body        []byte
}

// ExportService renders tabular datasets into CSV or PDF documents.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if cfg.AsyncMaxRows < cfg.MaxRows {
		cfg.AsyncMaxRows = cfg.MaxRows * 20
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, cfg: cfg, now: time.Now}
}

// MaxRows is the row cap callers apply when loading export data.
func (s *ExportService) MaxRows() int {
	return s.cfg.MaxRows
}

// AsyncMaxRows is the row cap for exports rendered by the background worker.
func (s *ExportService) AsyncMaxRows() int {
	return s.cfg.AsyncMaxRows
}

// Render encodes the dataset. name becomes the filename stem.
func (s *ExportService) Render(format export.Format, name, title string, data export.Dataset) (*ExportDocument, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case export.FormatCSV:
		body, err = s.csv.Render(data)
	case export.FormatPDF:
		body, err = s.pdf.Render(data, title)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s.%s", sanitizeFilename(name), s.now().UTC().Format("20060102_150405"), format)
	s.logger.Debug("rendered export", zap.String("file", filename), zap.Int("rows", len(data.Rows)))
	return &ExportDocument{Filename: filename, ContentType: format.ContentType(), Rows: len(data.Rows), Body: body}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "export"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
