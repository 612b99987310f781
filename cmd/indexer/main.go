// The indexer service consumes indexing, reindex and purge tasks and keeps
// patient vector collections consistent.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"patient-docs/internal/app"
	"patient-docs/internal/httputil"
	"patient-docs/internal/queue"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeIndexDocument, indexDocumentHandler(deps))
	})
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeReindexPatient, reindexHandler(deps))
	})
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypePurgePatient, purgeHandler(deps))
	})
	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.HealthPort)
	})

	deps.Log.Info("indexer worker started")
	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}

func indexDocumentHandler(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		var payload queue.IndexDocumentPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			deps.Log.Error("invalid index payload", "task_id", task.ID, "err", err)
			return nil
		}
		n, err := deps.Indexer.IndexDocument(ctx, payload.DocumentID, payload.Force)
		if err != nil {
			return err
		}
		deps.Log.Info("document indexed", "document_id", payload.DocumentID, "chunks", n)
		return nil
	}
}

func reindexHandler(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		var payload queue.ReindexPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			deps.Log.Error("invalid reindex payload", "task_id", task.ID, "err", err)
			return nil
		}
		report, err := deps.Indexer.ReindexPatient(ctx, payload.PatientID)
		if err != nil {
			return err
		}
		deps.Log.Info("reindex finished",
			"patient_id", report.PatientID,
			"total_documents", report.TotalDocuments,
			"indexed", report.Indexed,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"total_chunks", report.TotalChunks)
		return nil
	}
}

func purgeHandler(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		var payload queue.PurgePayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			deps.Log.Error("invalid purge payload", "task_id", task.ID, "err", err)
			return nil
		}
		return deps.Indexer.PurgePatient(ctx, payload.PatientID)
	}
}
