package cmd

import (
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/IliaW/autocomplete-crawler/internal/dispatch"
	_ "github.com/lib/pq"
)

func newFetcher() *dispatch.CollyFetcher {
	return dispatch.NewCollyFetcher(dispatch.FetcherOptions{
		UserAgent: cfg.CrawlerSettings.UserAgent,
		Headers:   cfg.CrawlerSettings.Headers,
		Timeout:   cfg.CrawlerSettings.RequestTimeout,
		Transport: getHttpTransport(),
	})
}

func getHttpTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        cfg.HttpClientSettings.MaxIdleConnections,
		MaxIdleConnsPerHost: cfg.HttpClientSettings.MaxIdleConnectionsPerHost,
		MaxConnsPerHost:     cfg.HttpClientSettings.MaxConnectionsPerHost,
		IdleConnTimeout:     cfg.HttpClientSettings.IdleConnectionTimeout,
		TLSHandshakeTimeout: cfg.HttpClientSettings.TlsHandshakeTimeout,
		DialContext: (&net.Dialer{
			Timeout:   cfg.HttpClientSettings.DialTimeout,
			KeepAlive: cfg.HttpClientSettings.DialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.HttpClientSettings.TlsInsecureSkipVerify,
		},
	}
}

func setupDatabase() (*sql.DB, error) {
	slog.Info("connecting to the database...")
	connStr := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		cfg.DbSettings.User,
		cfg.DbSettings.Password,
		cfg.DbSettings.Host,
		cfg.DbSettings.Port,
		cfg.DbSettings.Name,
	)
	database, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	database.SetConnMaxLifetime(cfg.DbSettings.ConnMaxLifetime)
	database.SetMaxOpenConns(cfg.DbSettings.MaxOpenConns)
	database.SetMaxIdleConns(cfg.DbSettings.MaxIdleConns)

	maxRetry := 3
	for i := 1; i <= maxRetry; i++ {
		slog.Info("ping the database.", slog.String("attempt", fmt.Sprintf("%d/%d", i, maxRetry)))
		pingErr := database.Ping()
		if pingErr == nil {
			break
		}
		slog.Error("not responding.", slog.String("err", pingErr.Error()))
		if i == maxRetry {
			database.Close()
			return nil, fmt.Errorf("ping database: %w", pingErr)
		}
		slog.Info(fmt.Sprintf("wait %d seconds", 2*i))
		time.Sleep(time.Duration(2*i) * time.Second)
	}
	slog.Info("connected to the database!")

	return database, nil
}
