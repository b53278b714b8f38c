package notify

import (
	"context"
	"errors"
	"log/slog"

	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"
	"recipebox/internal/pkg/queue"
)

// ErrNotConfigured 表示通知渠道未配置，调用方可以忽略。
var ErrNotConfigured = errors.New("notifier not configured")

// Notifier 定义通知接口。
type Notifier interface {
	// Welcome 在注册成功后通知用户。
	Welcome(ctx context.Context, user *model.User) error
}

// Async 把通知放到 worker 池中执行，不阻塞请求。
type Async struct {
	next   Notifier
	queue  *queue.Queue
	logger *slog.Logger
}

// NewAsync 包装一个同步 Notifier。
func NewAsync(next Notifier, q *queue.Queue, logger *slog.Logger) *Async {
	return &Async{next: next, queue: q, logger: logger}
}

// Welcome 入队一个欢迎通知任务；队列已满时丢弃并记录日志。
func (a *Async) Welcome(_ context.Context, user *model.User) error {
	if a == nil || a.next == nil || a.queue == nil || user == nil {
		return nil
	}
	u := *user
	ok := a.queue.Enqueue(func(ctx context.Context) error {
		err := a.next.Welcome(ctx, &u)
		switch {
		case err == nil:
			metrics.NotifyJobsTotal.WithLabelValues("sent").Inc()
		case errors.Is(err, ErrNotConfigured):
			metrics.NotifyJobsTotal.WithLabelValues("skipped").Inc()
			return nil
		default:
			metrics.NotifyJobsTotal.WithLabelValues("failed").Inc()
		}
		return err
	})
	if !ok {
		metrics.NotifyJobsTotal.WithLabelValues("dropped").Inc()
		if a.logger != nil {
			a.logger.Warn("welcome notification dropped", slog.String("email", u.Email))
		}
	}
	return nil
}
