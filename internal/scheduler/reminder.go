package scheduler

import (
	"context"
	"time"
)

// Sender delivers one reminder.
type Sender interface {
	Send(ctx context.Context) error
}

// ReminderJob sends the portfolio reminder once per firing.
type ReminderJob struct {
	sender  Sender
	timeout time.Duration
}

// NewReminderJob creates a job bounded by timeout per send.
func NewReminderJob(sender Sender, timeout time.Duration) *ReminderJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReminderJob{sender: sender, timeout: timeout}
}

// Name returns the job name
func (j *ReminderJob) Name() string {
	return "reminder"
}

// Run sends the reminder.
func (j *ReminderJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.sender.Send(ctx)
}
