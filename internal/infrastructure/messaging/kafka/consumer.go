package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"github.com/molprop/platform/internal/config"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// ErrAlreadyRunning reports a second Run call on the same consumer.
var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "job consumer already running")

// JobHandler processes one dequeued job.  The message is committed whether or
// not the handler errors; a failing job must not wedge its partition, so
// retries are the handler's responsibility.
type JobHandler func(ctx context.Context, job *analysis.Job) error

// readerInterface abstracts kafka.Reader so tests can fake the transport.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// JobConsumer drains the jobs topic inside the worker process.
type JobConsumer struct {
	reader    readerInterface
	logger    logging.Logger
	running   atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64
}

// NewJobConsumer builds a consumer in the configured group.
func NewJobConsumer(cfg config.KafkaConfig, log logging.Logger) *JobConsumer {
	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.JobsTopic,
		MinBytes:    minBytes,
		MaxBytes:    maxBytes,
		StartOffset: kafka.FirstOffset,
	})
	return &JobConsumer{reader: r, logger: log.Named("job_consumer")}
}

// Run fetches, handles, and commits jobs until ctx is canceled.  Malformed
// payloads are committed and dropped so a poison message cannot wedge the
// partition.
func (c *JobConsumer) Run(ctx context.Context, handle JobHandler) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeInternal, "cannot fetch job message")
		}

		var job analysis.Job
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			c.failed.Add(1)
			c.logger.Error("dropping malformed job message",
				logging.String("key", string(msg.Key)), logging.Err(err))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "cannot commit job message")
			}
			continue
		}

		// Handler failures are recorded on the job row by the worker;
		// the message is still committed so one bad job cannot wedge
		// the partition.
		if err := handle(ctx, &job); err != nil {
			c.failed.Add(1)
			c.logger.Error("job handler failed",
				logging.String("job_id", string(job.ID)),
				logging.String("run_id", job.RunID),
				logging.Err(err),
			)
		} else {
			c.processed.Add(1)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "cannot commit job message")
		}
	}
}

// Processed reports how many jobs completed successfully.
func (c *JobConsumer) Processed() int64 {
	return c.processed.Load()
}

// Close shuts down the reader, unblocking Run.
func (c *JobConsumer) Close() error {
	return c.reader.Close()
}
