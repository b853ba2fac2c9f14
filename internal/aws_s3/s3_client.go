package aws_s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/IliaW/autocomplete-crawler/config"
	"github.com/IliaW/autocomplete-crawler/internal/model"
	"github.com/IliaW/autocomplete-crawler/internal/report"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	crd "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type BucketClient interface {
	WriteResult(context.Context, *model.CollectionResult) (string, error)
}

type S3BucketClient struct {
	client *s3.Client
	cfg    *config.Config
}

func NewS3BucketClient(cfg *config.Config) (*S3BucketClient, error) {
	slog.Info("connecting to s3...")

	c, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to s3: %w", err)
	}

	return &S3BucketClient{
		client: c,
		cfg:    cfg,
	}, nil
}

func (bc *S3BucketClient) WriteResult(ctx context.Context, res *model.CollectionResult) (string, error) {
	s3Key := ResultKey(bc.cfg.S3Settings.KeyPrefix, bc.cfg.OutputSettings.FilePrefix, res.RunID, res.StartedAt)
	body, err := report.Marshal(res)
	if err != nil {
		slog.Error("marshaling failed.", slog.String("err", err.Error()))
		return "", err
	}
	contentType := "application/json"

	_, err = bc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bc.cfg.S3Settings.BucketName,
		Key:         &s3Key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		slog.Error("failed to save result to s3.", slog.String("err", err.Error()))
		return "", err
	}
	slog.Info("result saved to s3.", slog.String("key", s3Key))

	return s3Key, nil
}

// ResultKey is <keyPrefix>/<YYYY-MM-DD>/<runID>/<file name>.
func ResultKey(keyPrefix string, filePrefix string, runID string, startedAt time.Time) string {
	return path.Join(keyPrefix, startedAt.UTC().Format("2006-01-02"), runID,
		report.FileName(filePrefix, startedAt))
}

func connect(cfg *config.Config) (*s3.Client, error) {
	s3Config, err := awsCfg.LoadDefaultConfig(context.Background(), awsCfg.WithRegion(cfg.S3Settings.Region))
	if err != nil {
		slog.Error("failed to load s3 config.", slog.String("err", err.Error()))
		return nil, err
	}

	if cfg.Env == "local" {
		s3Config.BaseEndpoint = &cfg.S3Settings.AwsBaseEndpoint // for LocalStack
		s3Config.Credentials = crd.NewStaticCredentialsProvider("test", "test", "")
		// LocalStack does not support `virtual host addressing style` that uses s3 by default.
		slog.Warn("test configuration for S3")
		return s3.NewFromConfig(s3Config, func(o *s3.Options) {
			o.UsePathStyle = true
		}), nil
	}

	return s3.NewFromConfig(s3Config), nil
}
