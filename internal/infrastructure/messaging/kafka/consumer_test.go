package kafka

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

// fakeReader replays queued messages, then reports drained via io.EOF.
type fakeReader struct {
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func jobMessage(t *testing.T, job *analysis.Job) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(job.RunID), Value: payload}
}

func newTestConsumer(r readerInterface) *JobConsumer {
	return &JobConsumer{reader: r, logger: logging.NewNopLogger()}
}

func TestJobConsumerHandlesAndCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		jobMessage(t, &analysis.Job{ID: common.ID("job-1"), RunID: "run_a", Kind: analysis.KindPareto}),
		jobMessage(t, &analysis.Job{ID: common.ID("job-2"), RunID: "run_b", Kind: analysis.KindSAR}),
	}}
	c := newTestConsumer(r)

	var seen []string
	err := c.Run(context.Background(), func(_ context.Context, job *analysis.Job) error {
		seen = append(seen, string(job.ID))
		return nil
	})
	require.Error(t, err, "drained fake reader surfaces its fetch error")

	assert.Equal(t, []string{"job-1", "job-2"}, seen)
	assert.Len(t, r.committed, 2)
	assert.Equal(t, int64(2), c.Processed())
}

func TestJobConsumerDropsMalformedPayload(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Key: []byte("run_x"), Value: []byte("{not json")},
		jobMessage(t, &analysis.Job{ID: common.ID("job-3"), RunID: "run_c", Kind: analysis.KindVisualize}),
	}}
	c := newTestConsumer(r)

	var seen int
	_ = c.Run(context.Background(), func(_ context.Context, _ *analysis.Job) error {
		seen++
		return nil
	})

	assert.Equal(t, 1, seen, "malformed message never reaches the handler")
	assert.Len(t, r.committed, 2, "malformed message is committed so it cannot wedge the partition")
}

func TestJobConsumerCommitsFailedJobs(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		jobMessage(t, &analysis.Job{ID: common.ID("job-4"), RunID: "run_d", Kind: analysis.KindMMP}),
	}}
	c := newTestConsumer(r)

	_ = c.Run(context.Background(), func(_ context.Context, _ *analysis.Job) error {
		return errors.New(errors.ErrCodeInternal, "boom")
	})

	assert.Len(t, r.committed, 1)
	assert.Equal(t, int64(0), c.Processed())
	assert.Equal(t, int64(1), c.failed.Load())
}

func TestJobConsumerRejectsSecondRun(t *testing.T) {
	c := newTestConsumer(&fakeReader{})
	c.running.Store(true)

	err := c.Run(context.Background(), func(_ context.Context, _ *analysis.Job) error { return nil })
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}
