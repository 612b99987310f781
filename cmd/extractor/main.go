// The extractor service consumes extraction tasks and runs text recognition
// against uploaded documents.
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
		return deps.Queue.Worker(ctx, queue.TaskTypeExtract, extractHandler(deps))
	})
	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.HealthPort)
	})

	deps.Log.Info("extractor worker started")
	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}

func extractHandler(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		var payload queue.ExtractPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			deps.Log.Error("invalid extract payload", "task_id", task.ID, "err", err)
			return nil
		}
		return deps.Extractor.Run(ctx, payload.DocumentID, payload.ExtractionID, payload.Method)
	}
}
