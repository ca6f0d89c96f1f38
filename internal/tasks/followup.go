package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// ErrAlreadyScheduled 表示该申请的跟进邮件已在队列中。
var ErrAlreadyScheduled = errors.New("follow-up already scheduled")

// ErrMissingObjectKey 表示任务缺少去重用的对象 Key。
var ErrMissingObjectKey = errors.New("follow-up payload without object key")

// NextFollowUp 返回 now 所在日期的次日 hour 点整（loc 时区）。
func NextFollowUp(now time.Time, loc *time.Location, hour int) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// FollowUpScheduler 把跟进邮件写入 asynq 延时队列，进程重启不会丢失。
type FollowUpScheduler struct {
	client enqueuer
	loc    *time.Location
	hour   int
	now    func() time.Time
}

// NewFollowUpScheduler 返回 FollowUpScheduler。
func NewFollowUpScheduler(client *asynq.Client, loc *time.Location, hour int) *FollowUpScheduler {
	return &FollowUpScheduler{
		client: client,
		loc:    loc,
		hour:   hour,
		now:    time.Now,
	}
}

// Schedule 计算下一次发送时间并入队，返回计划时间。
func (s *FollowUpScheduler) Schedule(ctx context.Context, payload FollowUpPayload) (time.Time, error) {
	processAt := NextFollowUp(s.now(), s.loc, s.hour)
	if err := s.ScheduleAt(ctx, payload, processAt); err != nil {
		return time.Time{}, err
	}
	return processAt, nil
}

// ScheduleAt 在指定时间入队。
func (s *FollowUpScheduler) ScheduleAt(ctx context.Context, payload FollowUpPayload, processAt time.Time) error {
	if payload.ObjectKey == "" {
		return ErrMissingObjectKey
	}
	task, err := NewFollowUpEmailTask(payload)
	if err != nil {
		return fmt.Errorf("build follow-up task: %w", err)
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(processAt),
		asynq.MaxRetry(FollowUpMaxRetry),
		asynq.TaskID(FollowUpTaskID(payload.ObjectKey)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return ErrAlreadyScheduled
	}
	if err != nil {
		return fmt.Errorf("enqueue follow-up for %s: %w", payload.ObjectKey, err)
	}
	return nil
}
