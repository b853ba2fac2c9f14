package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/IliaW/autocomplete-crawler/internal/aws_s3"
	"github.com/IliaW/autocomplete-crawler/internal/broker"
	"github.com/IliaW/autocomplete-crawler/internal/crawler"
	"github.com/IliaW/autocomplete-crawler/internal/dispatch"
	"github.com/IliaW/autocomplete-crawler/internal/model"
	"github.com/IliaW/autocomplete-crawler/internal/persistence"
	"github.com/IliaW/autocomplete-crawler/internal/probe"
	"github.com/IliaW/autocomplete-crawler/internal/report"
	"github.com/IliaW/autocomplete-crawler/internal/session"
	"github.com/IliaW/autocomplete-crawler/internal/telemetry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawls the autocomplete endpoints until no new terms are discovered",
	Args:  cobra.NoArgs,
	RunE:  runCrawl,
}

func initRunFlags() {
	runCmd.Flags().String("output-dir", "", "directory for the result file")
	runCmd.Flags().Bool("no-probe", false, "skip the endpoint availability check")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.SetupMetrics(context.Background(), cfg)
	defer metrics.Close()

	s, err := session.New(cfg.CrawlerSettings.Endpoints)
	if err != nil {
		return err
	}
	fetcher := newFetcher()
	slog.Info("starting autocomplete crawler.", slog.String("env", cfg.Env),
		slog.Int("endpoints", s.Rotator.Len()))

	if cfg.CrawlerSettings.Probe {
		probe.Endpoints(fetcher, s.Rotator.Endpoints())
	}

	pacer := dispatch.NewPacer(cfg.CrawlerSettings.MinInterval)
	dispatcher := dispatch.NewDispatcher(s, fetcher, pacer, metrics.DispatchMetrics)
	c := crawler.NewCrawler(dispatcher, s.Metrics, metrics.CrawlMetrics, cfg.CrawlerSettings.Seeds)

	res := c.Run(ctx)
	res.RunID = uuid.New().String()
	report.Summarize(res, s.Metrics.IDs())

	path, err := report.WriteFile(res, cfg.OutputSettings.Directory, cfg.OutputSettings.FilePrefix, res.StartedAt)
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	slog.Info("results saved.", slog.String("path", path))

	// Sinks run on a fresh context so an interrupted crawl still ships its partial result.
	exportResult(context.Background(), res)
	return nil
}

func exportResult(ctx context.Context, res *model.CollectionResult) {
	if cfg.S3Settings.Enabled {
		bucket, err := aws_s3.NewS3BucketClient(cfg)
		if err != nil {
			slog.Error("failed to create s3 client.", slog.String("err", err.Error()))
		} else if key, err := bucket.WriteResult(ctx, res); err != nil {
			slog.Error("failed to upload result to s3.", slog.String("err", err.Error()))
		} else {
			slog.Info("result uploaded to s3.", slog.String("key", key))
		}
	}

	if cfg.DbSettings.Enabled {
		db, err := setupDatabase()
		if err != nil {
			slog.Error("failed to connect to the database.", slog.String("err", err.Error()))
		} else {
			var runs persistence.RunStorage = persistence.NewRunRepository(db)
			if err = runs.Save(ctx, res); err != nil {
				slog.Error("failed to save run.", slog.String("err", err.Error()))
			}
			if err = db.Close(); err != nil {
				slog.Error("failed to close database connection.", slog.String("err", err.Error()))
			}
		}
	}

	if cfg.KafkaSettings.Producer.Enabled {
		var publisher broker.TermPublisher = broker.NewKafkaTermPublisher(cfg.KafkaSettings.Producer)
		if err := publisher.Publish(ctx, res); err != nil {
			slog.Error("failed to publish terms.", slog.String("err", err.Error()))
		}
		publisher.Close()
	}
}
