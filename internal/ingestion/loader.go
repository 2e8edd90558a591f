package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Fulvio75/fpdb/internal/aggregation"
	"github.com/Fulvio75/fpdb/internal/core/storage"
)

// FileRecorder keeps the bookkeeping row of imported files.
type FileRecorder interface {
	RecordFile(ctx context.Context, f storage.FileRecord) (int64, error)
}

// FileLoader decodes record files and feeds them to the importer: hands
// first, as one run, then each tourney summary.
type FileLoader struct {
	formats  *FormatRegistry
	importer HandImporter
	files    FileRecorder
}

func NewFileLoader(formats *FormatRegistry, importer HandImporter, files FileRecorder) *FileLoader {
	if formats == nil {
		formats = NewFormatRegistry()
	}
	if importer == nil {
		panic("ingestion: importer must not be nil")
	}
	return &FileLoader{formats: formats, importer: importer, files: files}
}

// ImportFile imports one record file.
func (l *FileLoader) ImportFile(ctx context.Context, path string) (aggregation.Report, error) {
	var report aggregation.Report
	dec, err := l.formats.ForPath(path)
	if err != nil {
		return report, err
	}

	f, err := os.Open(path)
	if err != nil {
		return report, fmt.Errorf("open record file: %w", err)
	}
	batch, err := dec.Decode(f)
	f.Close()
	if err != nil {
		return report, fmt.Errorf("decode %s: %w", path, err)
	}

	started := time.Now()
	if len(batch.Hands) > 0 {
		report, err = l.importer.Import(ctx, batch.Hands)
		if err != nil {
			return report, fmt.Errorf("import %s: %w", path, err)
		}
	}

	var errs []error
	for _, s := range batch.Summaries {
		if _, err := l.importer.ImportSummary(ctx, s); err != nil {
			slog.Warn("[Loader] Tourney summary rejected", "path", path, "site_tourney_no", s.SiteTourneyNo, "error", err)
			errs = append(errs, err)
			report.Errors++
		}
	}

	if l.files != nil {
		rec := storage.FileRecord{
			Path:       path,
			Stored:     report.Stored,
			Duplicates: report.Duplicates,
			Errors:     report.Errors,
			Started:    started,
			Finished:   time.Now(),
		}
		if _, err := l.files.RecordFile(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("record file: %w", err))
		}
	}

	slog.Info("[Loader] Record file imported",
		"path", path,
		"hands", len(batch.Hands),
		"summaries", len(batch.Summaries),
		"stored", report.Stored,
		"duplicates", report.Duplicates,
		"errors", report.Errors,
	)
	return report, errors.Join(errs...)
}
