// Package export serves CSV exports, streaming small ones and handing
// large ones to the job queue.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/export"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobType is the queue job type of async exports
const JobType = "export.csv"

// ContentType is the media type of export files
const ContentType = "text/csv; charset=utf-8"

// ErrExportBusy is returned when the job queue cannot take another export
var ErrExportBusy = shared.NewDomainError("EXPORT_BUSY", "Too many exports in progress, please try again later")

// Config holds export tuning
type Config struct {
	// StreamThreshold is the row count from which exports go async
	StreamThreshold int64
	BatchSize       int
	URLExpiry       time.Duration
}

// DefaultConfig returns the default export configuration
func DefaultConfig() Config {
	return Config{
		StreamThreshold: 1000,
		BatchSize:       500,
		URLExpiry:       15 * time.Minute,
	}
}

// JobPayload is the queue payload of an async export
type JobPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// ExportService exports orders and products as CSV
type ExportService struct {
	config     Config
	orders     order.Repository
	products   catalog.ProductRepository
	brands     catalog.BrandRepository
	categories catalog.CategoryRepository
	jobs       export.JobRepository
	storage    ObjectStorage
	queue      scheduler.Enqueuer
	recorder   auditapp.Recorder
	metrics    *telemetry.BusinessMetrics
	logger     *zap.Logger
}

// ExportServiceConfig contains the dependencies of ExportService
type ExportServiceConfig struct {
	Config     Config
	Orders     order.Repository
	Products   catalog.ProductRepository
	Brands     catalog.BrandRepository
	Categories catalog.CategoryRepository
	Jobs       export.JobRepository
	Storage    ObjectStorage
	Queue      scheduler.Enqueuer
	Recorder   auditapp.Recorder
	Metrics    *telemetry.BusinessMetrics
	Logger     *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(cfg ExportServiceConfig) *ExportService {
	config := cfg.Config
	defaults := DefaultConfig()
	if config.StreamThreshold <= 0 {
		config.StreamThreshold = defaults.StreamThreshold
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.URLExpiry <= 0 {
		config.URLExpiry = defaults.URLExpiry
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = auditapp.Nop()
	}
	return &ExportService{
		config:     config,
		orders:     cfg.Orders,
		products:   cfg.Products,
		brands:     cfg.Brands,
		categories: cfg.Categories,
		jobs:       cfg.Jobs,
		storage:    cfg.Storage,
		queue:      cfg.Queue,
		recorder:   recorder,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

func (s *ExportService) source(entity export.Entity) (source, error) {
	switch entity {
	case export.EntityOrders:
		return orderSource{repo: s.orders}, nil
	case export.EntityProducts:
		return newProductSource(s.products, s.brands, s.categories), nil
	default:
		return nil, shared.NewDomainError("INVALID_ENTITY", "Unsupported export entity")
	}
}

// Export counts the matching rows and either streams them into stream or,
// from StreamThreshold rows, creates an async job. Nothing is written to
// stream in async mode.
func (s *ExportService) Export(ctx context.Context, storeID uuid.UUID, req Request, stream Stream) (*Result, error) {
	src, err := s.source(req.Entity)
	if err != nil {
		return nil, err
	}
	filter := toFilter(req.Entity, req.Filters)
	count, err := src.count(ctx, storeID, filter)
	if err != nil {
		return nil, err
	}

	if count < s.config.StreamThreshold {
		stream.Start(export.FileName(req.Entity, time.Now()))
		rows, err := s.writeCSV(ctx, src, storeID, filter, stream, stream.Flush)
		if err != nil {
			// headers are gone; the client sees a truncated file
			s.logger.Error("Export stream failed",
				zap.String("store_id", storeID.String()),
				zap.String("entity", string(req.Entity)),
				zap.Int64("rows_written", rows),
				zap.Error(err))
			return nil, err
		}
		s.metrics.RecordExport(ctx, storeID, string(req.Entity), telemetry.ExportModeStream)
		s.record(ctx, storeID, req, ModeStream, uuid.Nil, rows)
		return &Result{Mode: ModeStream, Rows: rows}, nil
	}

	job, err := export.NewJob(storeID, req.Entity, cleanFilters(req.Entity, req.Filters), req.ActorID, count)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(ctx, JobType, JobPayload{JobID: job.ID}); err != nil {
		job.Fail(err)
		if saveErr := s.jobs.Save(ctx, job); saveErr != nil {
			s.logger.Error("Failed to save export job", zap.Error(saveErr))
		}
		if errors.Is(err, scheduler.ErrQueueFull) || errors.Is(err, scheduler.ErrQueueStopped) {
			return nil, ErrExportBusy
		}
		return nil, err
	}

	s.logger.Info("Export queued",
		zap.String("store_id", storeID.String()),
		zap.String("entity", string(req.Entity)),
		zap.String("job_id", job.ID.String()),
		zap.Int64("rows", count))
	s.metrics.RecordExport(ctx, storeID, string(req.Entity), telemetry.ExportModeAsync)
	s.record(ctx, storeID, req, ModeAsync, job.ID, count)
	return &Result{Mode: ModeAsync, Rows: count, Job: ToJobResponse(job)}, nil
}

// writeCSV writes the header and every matching row in batches, calling
// flush after each batch
func (s *ExportService) writeCSV(ctx context.Context, src source, storeID uuid.UUID, filter shared.Filter, w io.Writer, flush func()) (int64, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(src.header()); err != nil {
		return 0, err
	}

	var (
		rows  int64
		after *shared.Cursor
	)
	for {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		next, n, err := src.batch(ctx, storeID, filter, after, s.config.BatchSize, cw)
		if err != nil {
			return rows, err
		}
		rows += int64(n)
		cw.Flush()
		if err := cw.Error(); err != nil {
			return rows, err
		}
		if flush != nil {
			flush()
		}
		if n < s.config.BatchSize || next == nil {
			return rows, nil
		}
		after = next
	}
}

// RunJob executes an async export. It is the queue handler for JobType.
func (s *ExportService) RunJob(ctx context.Context, payload json.RawMessage) error {
	var p JobPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid export payload: %w", err)
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "export", "run_job",
		telemetry.WithAttribute(telemetry.SpanAttrJobID, p.JobID),
	)
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(JobType, nil), func(ctx context.Context) {
		err = s.runJob(ctx, p)
	})
	telemetry.Finish(span, err)
	return err
}

func (s *ExportService) runJob(ctx context.Context, p JobPayload) error {
	job, err := s.jobs.FindByID(ctx, p.JobID)
	if err != nil {
		return err
	}
	if job.Status == export.JobCompleted {
		return nil
	}

	job.Start()
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}

	key, rows, err := s.produce(ctx, job)
	if err != nil {
		job.Fail(err)
		if saveErr := s.jobs.Save(context.WithoutCancel(ctx), job); saveErr != nil {
			s.logger.Error("Failed to save export job", zap.Error(saveErr))
		}
		return err
	}

	job.Complete(key, rows)
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}
	s.logger.Info("Export completed",
		zap.String("job_id", job.ID.String()),
		zap.String("file_key", key),
		zap.Int64("rows", rows))
	return nil
}

// produce writes the CSV to a temp file and uploads it
func (s *ExportService) produce(ctx context.Context, job *export.Job) (string, int64, error) {
	src, err := s.source(job.Entity)
	if err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp("", "export-*.csv")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	rows, err := s.writeCSV(ctx, src, job.StoreID, toFilter(job.Entity, job.Filter), tmp, nil)
	if err != nil {
		return "", rows, err
	}
	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", rows, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", rows, err
	}

	key := FileKey(job.StoreID, job.ID)
	if err := s.storage.Put(ctx, key, tmp, size, ContentType); err != nil {
		return "", rows, fmt.Errorf("failed to upload export: %w", err)
	}
	return key, rows, nil
}

// FileKey is the object key of an export file
func FileKey(storeID, jobID uuid.UUID) string {
	return fmt.Sprintf("exports/%s/%s.csv", storeID, jobID)
}

// GetJob returns an export job with a download URL once it is completed
func (s *ExportService) GetJob(ctx context.Context, storeID, jobID uuid.UUID) (*JobResponse, error) {
	job, err := s.jobs.FindByIDForStore(ctx, storeID, jobID)
	if err != nil {
		return nil, err
	}
	resp := ToJobResponse(job)
	if job.Status == export.JobCompleted && job.FileKey != "" {
		url, err := s.storage.PresignGet(ctx, job.FileKey, job.FileName(), s.config.URLExpiry)
		if err != nil {
			return nil, err
		}
		resp.DownloadURL = url
	}
	return resp, nil
}

// ListJobs returns a page of the store's export jobs
func (s *ExportService) ListJobs(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[JobResponse], error) {
	filter = filter.Normalize()
	jobs, err := s.jobs.FindAllForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[JobResponse]{}, err
	}
	total, err := s.jobs.CountForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[JobResponse]{}, err
	}
	items := make([]JobResponse, len(jobs))
	for i := range jobs {
		items[i] = *ToJobResponse(&jobs[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func (s *ExportService) record(ctx context.Context, storeID uuid.UUID, req Request, mode Mode, jobID uuid.UUID, rows int64) {
	entityID := string(req.Entity)
	if jobID != uuid.Nil {
		entityID = jobID.String()
	}
	s.recorder.Record(ctx, auditapp.Entry{
		StoreID:    storeID,
		ActorID:    req.ActorID,
		Action:     audit.ActionExportRequested,
		EntityType: "export",
		EntityID:   entityID,
		Metadata: map[string]string{
			"entity": string(req.Entity),
			"mode":   string(mode),
			"rows":   fmt.Sprintf("%d", rows),
		},
	})
}
