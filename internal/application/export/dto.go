package export

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/export"
)

// Mode tells how an export was served
type Mode string

const (
	ModeStream Mode = "stream"
	ModeAsync  Mode = "async"
)

// Request is an export of one entity with the entity's list filters
type Request struct {
	Entity  export.Entity
	Filters map[string]string
	ActorID *uuid.UUID
}

// Result is the outcome of Export. Job is set in async mode.
type Result struct {
	Mode Mode
	Rows int64
	Job  *JobResponse
}

// JobResponse is an async export as returned by the API
type JobResponse struct {
	ID          uuid.UUID         `json:"id"`
	Entity      string            `json:"entity"`
	Filter      map[string]string `json:"filter,omitempty"`
	Status      string            `json:"status"`
	RowCount    int64             `json:"row_count"`
	Error       string            `json:"error,omitempty"`
	FileName    string            `json:"file_name"`
	DownloadURL string            `json:"download_url,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// ToJobResponse converts a domain Job
func ToJobResponse(j *export.Job) *JobResponse {
	return &JobResponse{
		ID:          j.ID,
		Entity:      string(j.Entity),
		Filter:      j.Filter,
		Status:      string(j.Status),
		RowCount:    j.RowCount,
		Error:       j.Error,
		FileName:    j.FileName(),
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
}
