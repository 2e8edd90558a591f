package ingestion

import (
	"context"

	"github.com/Fulvio75/fpdb/internal/aggregation"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/gin-gonic/gin"
)

// HandImporter stores parsed hands and tourney summaries.
type HandImporter interface {
	Import(ctx context.Context, records []storage.HandRecord) (aggregation.Report, error)
	ImportSummary(ctx context.Context, s storage.TourneySummary) (aggregation.SummaryReport, error)
}

type Service struct {
	importer         HandImporter
	maxBodySizeBytes int
}

func NewService(importer HandImporter, maxBodySizeMB int) *Service {
	if importer == nil {
		panic("ingestion: importer must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		importer:         importer,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/hands", s.IngestHandsHandler)
	r.POST("/v1/tourneys/summaries", s.IngestSummaryHandler)
}
