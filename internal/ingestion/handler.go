package ingestion

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Fulvio75/fpdb/internal/aggregation"
	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/lock"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgImportFailed   = "Failed to import records"
	msgLockHeld       = "Another import is running"
	msgEmptyBatch     = "Batch contains no hands"
	msgCachesStale    = "Hands stored but caches not updated, rebuild required"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandsHandler imports a JSON array of parsed hands.
func (s *Service) IngestHandsHandler(c *gin.Context) {
	var records []storage.HandRecord
	if err := s.bindBody(c, &records); err != nil {
		writeError(c, err)
		return
	}
	if len(records) == 0 {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  fperrors.HttpInvalidJsonError,
			message:    msgEmptyBatch,
		})
		return
	}

	slog.Info("[Ingestion] Received hand batch", "hands", len(records))

	report, err := s.importer.Import(c.Request.Context(), records)
	if errors.Is(err, aggregation.ErrCachesStale) {
		slog.Error("[Ingestion] Hands stored with stale caches", "stored", report.Stored, "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  fperrors.HttpCachesStaleError,
			message:    msgCachesStale,
			details: map[string]interface{}{
				"stored": report.Stored,
				"run_id": report.RunID,
				"action": "rebuild",
			},
		})
		return
	}
	if err != nil {
		writeError(c, importError(err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// IngestSummaryHandler imports one tourney summary.
func (s *Service) IngestSummaryHandler(c *gin.Context) {
	var summary storage.TourneySummary
	if err := s.bindBody(c, &summary); err != nil {
		writeError(c, err)
		return
	}
	if summary.SiteTourneyNo == "" {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  fperrors.HttpInvalidParamError,
			message:    "siteTourneyNo is required",
		})
		return
	}

	slog.Info("[Ingestion] Received tourney summary", "site_tourney_no", summary.SiteTourneyNo, "players", len(summary.Players))

	report, err := s.importer.ImportSummary(c.Request.Context(), summary)
	if err != nil {
		writeError(c, importError(err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// bindBody reads the request body under the size limit and binds it as JSON.
func (s *Service) bindBody(c *gin.Context, dst any) *ingestionError {
	maxBytes := int64(s.maxBodySizeBytes)
	bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1))
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  fperrors.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}
	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  fperrors.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  fperrors.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	return nil
}

// importError maps an import failure onto its HTTP shape.
func importError(err error) *ingestionError {
	var ce *fperrors.ConsistencyError
	switch {
	case errors.Is(err, lock.ErrHeld):
		slog.Info("[Ingestion] Import rejected, lock held")
		return &ingestionError{
			statusCode: http.StatusConflict,
			errorType:  fperrors.HttpLockHeldError,
			message:    msgLockHeld,
		}
	case errors.As(err, &ce):
		slog.Warn("[Ingestion] Inconsistent dimension", "error", err)
		return &ingestionError{
			statusCode: http.StatusUnprocessableEntity,
			errorType:  fperrors.HttpConsistencyError,
			message:    ce.Error(),
			details: map[string]interface{}{
				"dimension": ce.Dimension,
				"id":        ce.ID,
			},
		}
	}
	slog.Error("[Ingestion] Import failed", "error", err)
	return &ingestionError{
		statusCode: http.StatusInternalServerError,
		errorType:  fperrors.HttpInternalError,
		message:    msgImportFailed,
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, fperrors.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
