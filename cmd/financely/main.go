// Command financely serves the household ledger JSON API.
//
// The Gemini oracle and the AMQP event stream are both optional: the
// server runs without them, with the AI endpoints answering 502 and
// mirror rows waiting for the sweep in financely-worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/cli"
	"github.com/sakshipatil0812/FinancialyAI/internal/gemini"
	apphttp "github.com/sakshipatil0812/FinancialyAI/internal/http"
	"github.com/sakshipatil0812/FinancialyAI/internal/ledger"
	"github.com/sakshipatil0812/FinancialyAI/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	logger.Info("Starting financely")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var oracle ledger.Oracle
	if cfg.GeminiAPIKey != "" {
		oracle = gemini.NewClient(&gemini.ClientOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Logger:  logger.WithComponent(log.ComponentOracle),
		})
		logger.Info("Oracle enabled", log.FieldModel, cfg.GeminiModel)
	} else {
		logger.Info("Oracle disabled, no GEMINI_API_KEY set")
	}

	var publisher ledger.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPMirrorQueue, cfg.AMQPAlertQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, events disabled until restart", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}

	engine := ledger.NewEngine(repo, oracle, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, engine, logger)
	srv.ReadTimeout = 15 * time.Second
	srv.ReadHeaderTimeout = 5 * time.Second
	srv.IdleTimeout = 60 * time.Second
	// WriteTimeout stays zero: oracle chat streams over SSE and a write
	// deadline would cut answers mid-stream.

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", log.FieldError, err)
		}
	})

	logger.Info("Listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Stopped")
}
