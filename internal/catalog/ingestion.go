package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
)

// overviewDocuments is how many documents Overview checks status for.
const overviewDocuments = 5

// Ingestion statuses the client assigns itself.
const (
	StatusPending    = "pending"
	StatusNotStarted = "not_started"
)

// Ingestion is the /ingestion resource. None of its calls fall back.
type Ingestion struct {
	d *deps
}

// Run starts a full ingestion pass.
func (i *Ingestion) Run(ctx context.Context) (api.Envelope[domain.JobAck], error) {
	return direct[domain.JobAck](ctx, i.d, http.MethodPost, "/ingestion/run", nil)
}

// Status fetches the status of the current ingestion pass.
func (i *Ingestion) Status(ctx context.Context) (api.Envelope[domain.JobStatus], error) {
	return direct[domain.JobStatus](ctx, i.d, http.MethodGet, "/ingestion/status", nil)
}

// Trigger starts ingestion for one document.
func (i *Ingestion) Trigger(ctx context.Context, documentID int) (api.Envelope[domain.JobAck], error) {
	return direct[domain.JobAck](ctx, i.d, http.MethodPost, fmt.Sprintf("/ingestion/trigger/%d", documentID), nil)
}

// TodayCount fetches how many documents were processed today.
func (i *Ingestion) TodayCount(ctx context.Context) (api.Envelope[domain.TodayCount], error) {
	return direct[domain.TodayCount](ctx, i.d, http.MethodGet, "/ingestion/today-count", nil)
}

// DocumentStatus fetches the ingestion status of one document.
func (i *Ingestion) DocumentStatus(ctx context.Context, documentID int) (api.Envelope[domain.JobStatus], error) {
	return direct[domain.JobStatus](ctx, i.d, http.MethodGet, fmt.Sprintf("/ingestion/status/%d", documentID), nil)
}

// Overview summarizes ingestion across documents.
type Overview struct {
	Jobs           []domain.IngestionJob
	TotalDocuments int
	ProcessedToday int
	FailedJobs     int
}

// Overview loads the document list, then the today count and the status of
// the first few documents concurrently. A failed status check shows that
// document as not started and a failed count shows zero; only a failure to
// list documents is returned.
func (i *Ingestion) Overview(ctx context.Context) (Overview, error) {
	docs, err := direct[[]domain.Document](ctx, i.d, http.MethodGet, "/documents", nil)
	if err != nil {
		return Overview{}, err
	}

	checked := docs.Data
	if len(checked) > overviewDocuments {
		checked = checked[:overviewDocuments]
	}

	jobs := make([]domain.IngestionJob, len(checked))

	var today int

	var g errgroup.Group

	g.Go(func() error {
		env, err := i.TodayCount(ctx)
		if err != nil {
			i.d.logger.Debug("today count unavailable", slog.String("error", err.Error()))
			return nil
		}

		today = env.Data.TodayProcessed

		return nil
	})

	for idx, doc := range checked {
		g.Go(func() error {
			jobs[idx] = i.jobFor(ctx, doc)
			return nil
		})
	}

	_ = g.Wait() // every goroutine tolerates its own failure

	failed := 0
	for _, j := range jobs {
		if j.Status == "failed" || j.Status == "error" {
			failed++
		}
	}

	return Overview{
		Jobs:           jobs,
		TotalDocuments: len(docs.Data),
		ProcessedToday: today,
		FailedJobs:     failed,
	}, nil
}

func (i *Ingestion) jobFor(ctx context.Context, doc domain.Document) domain.IngestionJob {
	job := domain.IngestionJob{
		DocumentID: doc.ID,
		Name:       "Processing " + doc.DisplayName(),
		StartedAt:  doc.UploadedAt,
		Status:     StatusNotStarted,
	}

	env, err := i.DocumentStatus(ctx, doc.ID)
	if err != nil {
		i.d.logger.Debug("status check failed",
			slog.Int("document_id", doc.ID),
			slog.String("error", err.Error()),
		)

		return job
	}

	job.Status = env.Data.Status
	if job.Status == "" {
		job.Status = StatusPending
	}

	job.Progress = Progress(job.Status)

	return job
}

// Progress maps an ingestion status to a completion percentage.
func Progress(status string) int {
	switch strings.ToLower(status) {
	case "completed", "success":
		return 100
	case "running", "processing", "in_progress":
		return 75
	default:
		return 0
	}
}
