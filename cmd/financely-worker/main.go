// Command financely-worker drains the mirror and alert queues into the
// spreadsheet.
//
// It consumes both queues, sweeps pending rows on an interval so
// nothing is lost while the worker is down, and reconciles unmirrored
// expenses once at startup. Without Google credentials the mirror goes
// to an in-memory stand-in, which keeps local stacks runnable.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/cli"
	"github.com/sakshipatil0812/FinancialyAI/internal/log"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets/google"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets/memory"
	"github.com/sakshipatil0812/FinancialyAI/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting financely-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var (
		mirrorWriter  sheets.MirrorWriter
		mirrorDeleter sheets.MirrorDeleter
		alertWriter   sheets.AlertWriter
	)
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirrorWriter, mirrorDeleter, alertWriter = client, client, client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		store := memory.New()
		mirrorWriter, mirrorDeleter, alertWriter = store, store, store
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPMirrorQueue, cfg.AMQPAlertQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(repo, mirrorWriter, mirrorDeleter, cfg.SyncBatchSize)
	alertWorker := worker.NewAlertWorker(alertWriter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Expenses written while no worker was listening have no queue
	// message; reconcile them before consuming.
	if err := mirrorWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup reconciliation failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeMirror(gctx, func(msg *amqp.MirrorMessage) error {
			return mirrorWorker.HandleMirrorMessage(gctx, msg)
		})
	})
	g.Go(func() error {
		return amqpClient.ConsumeAlerts(gctx, func(msg *amqp.AlertMessage) error {
			return alertWorker.HandleAlertMessage(gctx, msg)
		})
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := mirrorWorker.ProcessPending(gctx); err != nil {
					logger.Error("Pending sweep failed", log.FieldError, err)
				}
			}
		}
	})

	logger.Info("Consuming", "mirror_queue", cfg.AMQPMirrorQueue, "alert_queue", cfg.AMQPAlertQueue, "sync_interval", cfg.SyncInterval.String())
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped early", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Stopped")
}
