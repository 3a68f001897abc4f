package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSender struct {
	calls atomic.Int32
	err   error
}

func (s *countingSender) Send(ctx context.Context) error {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send without deadline")
	}
	return s.err
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("0 9 * * MON-FRI"))
	assert.NoError(t, Validate("30 0 9 * * *"))
	assert.NoError(t, Validate("@daily"))
	assert.NoError(t, Validate("@every 1h"))
	assert.Error(t, Validate("every morning"))
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", NewReminderJob(&countingSender{}, time.Second))
	assert.Error(t, err)
}

func TestScheduler_FiresIndependently(t *testing.T) {
	sender := &countingSender{err: errors.New("ntfy down")}
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1s", NewReminderJob(sender, time.Second)))

	s.Start()
	defer s.Stop()

	// a failed firing does not stop later ones
	assert.Eventually(t, func() bool { return sender.calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	sender := &countingSender{}
	job := NewReminderJob(sender, 0)

	require.NoError(t, New(zerolog.Nop()).RunNow(job))
	assert.Equal(t, int32(1), sender.calls.Load())
	assert.Equal(t, "reminder", job.Name())
}
