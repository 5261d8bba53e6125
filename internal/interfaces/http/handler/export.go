package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	exportapp "github.com/storefront/backend/internal/application/export"
	"github.com/storefront/backend/internal/domain/export"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ExportService is the part of exportapp.ExportService the handler uses
type ExportService interface {
	Export(ctx context.Context, storeID uuid.UUID, req exportapp.Request, stream exportapp.Stream) (*exportapp.Result, error)
	GetJob(ctx context.Context, storeID, jobID uuid.UUID) (*exportapp.JobResponse, error)
	ListJobs(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[exportapp.JobResponse], error)
}

// ExportHandler serves CSV exports and export jobs
type ExportHandler struct {
	BaseHandler
	exportService ExportService
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exportService ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// csvStream writes a synchronous export straight to the response
type csvStream struct {
	c       *gin.Context
	started bool
}

func (s *csvStream) Start(fileName string) {
	s.started = true
	s.c.Header("Content-Type", "text/csv; charset=utf-8")
	s.c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	s.c.Status(http.StatusOK)
}

func (s *csvStream) Write(p []byte) (int, error) {
	return s.c.Writer.Write(p)
}

func (s *csvStream) Flush() {
	s.c.Writer.Flush()
}

// Export returns a handler exporting the entity with the query string as
// filters. Small results are streamed as CSV; large ones answer 202 with
// the queued job.
// GET /api/v1/stores/:storeId/{orders,products}/export
func (h *ExportHandler) Export(entity export.Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, actorID, ok := h.scope(c)
		if !ok {
			return
		}

		filters := make(map[string]string)
		for key, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				filters[key] = values[0]
			}
		}

		stream := &csvStream{c: c}
		result, err := h.exportService.Export(c.Request.Context(), storeID, exportapp.Request{
			Entity:  entity,
			Filters: filters,
			ActorID: &actorID,
		}, stream)
		if err != nil {
			if stream.started {
				logger.GetGinLogger(c).Warn("Export aborted mid-stream", zap.Error(err))
				c.Abort()
				return
			}
			h.HandleError(c, err)
			return
		}
		if result.Mode == exportapp.ModeAsync {
			h.Accepted(c, result.Job)
		}
	}
}

// GetJob returns an export job, with a download URL once completed
// GET /api/v1/stores/:storeId/exports/:jobId
func (h *ExportHandler) GetJob(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	jobID, ok := h.uuidParam(c, "jobId")
	if !ok {
		return
	}

	job, err := h.exportService.GetJob(c.Request.Context(), storeID, jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// ListJobs returns a page of the store's export jobs
// GET /api/v1/stores/:storeId/exports
func (h *ExportHandler) ListJobs(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	filter, ok := bindList(c, "status", "entity")
	if !ok {
		return
	}

	page, err := h.exportService.ListJobs(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}
