// Package indexing runs semantic document indexing as background jobs, so
// catalog ingestion never blocks on the embedding provider.
package indexing

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/tribu-ai/catalog-backend/internal/models"
	"github.com/tribu-ai/catalog-backend/internal/search"
)

type IndexAgentsJobArgs struct {
	Agents []models.Agent `json:"agents"`
}

func (IndexAgentsJobArgs) Kind() string { return "index_agents" }

type IndexAgentsWorker struct {
	river.WorkerDefaults[IndexAgentsJobArgs]
	search search.Service
	log    *slog.Logger
}

func NewIndexAgentsWorker(searchSvc search.Service, log *slog.Logger) *IndexAgentsWorker {
	if log == nil {
		log = slog.Default()
	}
	return &IndexAgentsWorker{search: searchSvc, log: log}
}

func (w *IndexAgentsWorker) Work(ctx context.Context, job *river.Job[IndexAgentsJobArgs]) error {
	count, err := w.search.IndexAgents(ctx, job.Args.Agents)
	if err != nil {
		return err
	}
	w.log.Info("index job completed", "indexed", count, "job_id", job.ID)
	return nil
}

// InsertIndexJobFunc enqueues an index job. Provided by main as a closure
// over river.Client.Insert.
type InsertIndexJobFunc func(ctx context.Context, args IndexAgentsJobArgs) error

// Enqueuer hands agent batches to the job queue.
type Enqueuer struct {
	insert InsertIndexJobFunc
}

func NewEnqueuer(insert InsertIndexJobFunc) *Enqueuer {
	return &Enqueuer{insert: insert}
}

func (e *Enqueuer) EnqueueIndex(ctx context.Context, agents []models.Agent) error {
	if len(agents) == 0 {
		return nil
	}
	return e.insert(ctx, IndexAgentsJobArgs{Agents: agents})
}
