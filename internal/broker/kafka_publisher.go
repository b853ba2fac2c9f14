package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IliaW/autocomplete-crawler/config"
	"github.com/IliaW/autocomplete-crawler/internal/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress/lz4"
)

type TermPublisher interface {
	Publish(context.Context, *model.CollectionResult) error
	Close()
}

// TermMessage is the value of every message written to the terms topic. The message key is the term.
type TermMessage struct {
	Term  string `json:"term"`
	RunID string `json:"run_id"`
}

type KafkaTermPublisher struct {
	kafkaWriter *kafka.Writer
	cfg         *config.ProducerConfig
}

func NewKafkaTermPublisher(cfg *config.ProducerConfig) *KafkaTermPublisher {
	kafkaWriter := kafka.Writer{
		Addr:         kafka.TCP(cfg.Addr...),
		Topic:        cfg.WriteTopicName,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxAttempts,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: 100 * time.Millisecond,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAsks),
		Compression:  kafka.Compression(new(lz4.Codec).Code()),
	}
	return &KafkaTermPublisher{
		kafkaWriter: &kafkaWriter,
		cfg:         cfg,
	}
}

// Publish writes every discovered term in batches of cfg.BatchSize. It stops at the first failed batch.
func (p *KafkaTermPublisher) Publish(ctx context.Context, res *model.CollectionResult) error {
	slog.Info("publishing terms to kafka...", slog.String("topic", p.cfg.WriteTopicName),
		slog.Int("terms", len(res.Names)))
	messages, err := BuildMessages(res)
	if err != nil {
		return err
	}
	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(messages)
	}
	for start := 0; start < len(messages); start += batchSize {
		end := min(start+batchSize, len(messages))
		if err := p.kafkaWriter.WriteMessages(ctx, messages[start:end]...); err != nil {
			return fmt.Errorf("write messages %d-%d: %w", start, end, err)
		}
		slog.Debug("successfully sent messages to kafka.", slog.Int("batch length", end-start))
	}
	slog.Info("terms published to kafka.", slog.Int("terms", len(messages)))

	return nil
}

func (p *KafkaTermPublisher) Close() {
	if err := p.kafkaWriter.Close(); err != nil {
		slog.Error("failed to close kafka writer.", slog.String("err", err.Error()))
	}
}

func BuildMessages(res *model.CollectionResult) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(res.Names))
	for _, name := range res.Names {
		body, err := jsoniter.Marshal(TermMessage{Term: name, RunID: res.RunID})
		if err != nil {
			return nil, fmt.Errorf("marshal term %q: %w", name, err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(name),
			Value: body,
		})
	}
	return messages, nil
}
