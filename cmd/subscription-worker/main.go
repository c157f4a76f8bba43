// Command subscription-worker materializes due subscription charges.
//
// It runs once at startup, then on an interval. AMQP is best effort:
// without it charges still land in the store and the mirror sweep in
// financely-worker picks them up later.
package main

import (
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/cli"
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/ledger"
	"github.com/sakshipatil0812/FinancialyAI/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentSubscription)
	logger.Info("Starting subscription-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher ledger.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPMirrorQueue, cfg.AMQPAlertQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, charges will mirror on the next sweep", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	engine := ledger.NewEngine(repo, nil, publisher)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	process := func(now time.Time) {
		now = now.UTC()
		asOf := core.NewDate(now.Year(), int(now.Month()), now.Day())
		count, err := engine.ProcessDueSubscriptions(ctx, asOf)
		if err != nil {
			logger.Error("Subscription run failed", log.FieldError, err, "as_of", asOf.String())
			return
		}
		if count > 0 {
			logger.Info("Subscription charges recorded", "count", count, "as_of", asOf.String())
		}
	}

	process(time.Now())

	go func() {
		ticker := time.NewTicker(cfg.SubscriptionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				process(now)
			}
		}
	}()

	logger.Info("Scheduled", "interval", cfg.SubscriptionInterval.String())
	cli.WaitForShutdown(ctx, done)
	logger.Info("Stopped")
}
