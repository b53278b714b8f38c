// Package queue 提供固定大小的进程内 worker 池，用于不阻塞请求的后台任务（如发送邮件）。
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Job 表示一个可执行的异步任务。
type Job func(ctx context.Context) error

// ErrorHandler 错误处理回调函数。
type ErrorHandler func(err error)

// Queue 是带缓冲的任务通道加固定数量的 worker。
type Queue struct {
	logger       *slog.Logger
	workers      int
	jobs         chan Job
	errorHandler ErrorHandler

	wg     sync.WaitGroup
	closed atomic.Bool

	enqueued  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64
}

// Stats 队列统计信息快照。
type Stats struct {
	Enqueued  int64
	Succeeded int64
	Failed    int64
	Dropped   int64
	Panics    int64
}

// NewQueue 创建任务队列；workers 与 capacity 至少为 1。
func NewQueue(logger *slog.Logger, workers int, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		logger:  logger,
		workers: workers,
		jobs:    make(chan Job, capacity),
	}
}

// SetErrorHandler 设置错误处理回调函数。
func (q *Queue) SetErrorHandler(handler ErrorHandler) {
	q.errorHandler = handler
}

// Start 启动 worker 池，直到 ctx 被取消或调用 Shutdown。
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("worker stopped", slog.Int("worker_id", id))
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			if job != nil {
				q.execute(ctx, job, id)
			}
		}
	}
}

func (q *Queue) execute(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			q.panics.Add(1)
			q.logger.Error("job panic recovered",
				slog.Int("worker_id", workerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := job(ctx); err != nil {
		q.failed.Add(1)
		q.logger.Warn("job failed", slog.Int("worker_id", workerID), slog.String("error", err.Error()))
		if q.errorHandler != nil {
			q.errorHandler(err)
		}
		return
	}
	q.succeeded.Add(1)
}

// Enqueue 非阻塞入队；队列已满或已关闭时返回 false。
func (q *Queue) Enqueue(job Job) bool {
	if job == nil {
		return false
	}
	if q.closed.Load() {
		q.logger.Warn("queue is closed, reject job")
		return false
	}

	select {
	case q.jobs <- job:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn("queue full, drop job", slog.Int("capacity", cap(q.jobs)))
		return false
	}
}

// Shutdown 拒绝新任务，并等待 worker 处理完已入队的任务。
func (q *Queue) Shutdown() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.jobs)
		q.wg.Wait()
		q.logger.Info("queue shutdown completed")
	}
}

// ShutdownWithTimeout 带超时的优雅关闭。
func (q *Queue) ShutdownWithTimeout(timeout time.Duration) error {
	if !q.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("queue already closed")
	}
	close(q.jobs)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue shutdown completed")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %s", timeout)
	}
}

// Stats 返回统计快照。
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
		Panics:    q.panics.Load(),
	}
}
