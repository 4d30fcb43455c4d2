package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/molprop/platform/internal/config"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// ErrProducerClosed reports a publish after Close.
var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "job producer is closed")

// writerInterface abstracts kafka.Writer so tests can fake the transport.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// JobProducer publishes analysis jobs onto the jobs topic.  The dashboard
// enqueues here, the worker drains on the other side.
type JobProducer struct {
	writer    writerInterface
	topic     string
	logger    logging.Logger
	closed    atomic.Bool
	published atomic.Int64
}

// NewJobProducer builds a producer over the configured brokers.  Messages
// are keyed by run ID so all jobs for one run land in one partition, in
// order.
func NewJobProducer(cfg config.KafkaConfig, log logging.Logger) *JobProducer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}
	retries := cfg.ProducerRetries
	if retries <= 0 {
		retries = 3
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.JobsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  retries,
		BatchTimeout: batchTimeout,
	}
	return &JobProducer{writer: w, topic: cfg.JobsTopic, logger: log.Named("job_producer")}
}

// Publish enqueues one job.
func (p *JobProducer) Publish(ctx context.Context, job *analysis.Job) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot encode job")
	}
	msg := kafka.Message{
		Key:   []byte(job.RunID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(job.Kind)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, errors.ErrCodeInternal, "cannot publish job %s", job.ID)
	}
	p.published.Add(1)
	p.logger.Info("job published",
		logging.String("job_id", string(job.ID)),
		logging.String("run_id", job.RunID),
		logging.String("kind", string(job.Kind)),
	)
	return nil
}

// Published reports how many jobs this producer has sent.
func (p *JobProducer) Published() int64 {
	return p.published.Load()
}

// Close flushes and shuts down the writer.
func (p *JobProducer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
