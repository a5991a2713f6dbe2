package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed 任务池已关闭
var ErrClosed = errors.New("workerpool: closed")

// Task 定义任务函数类型
type Task func()

// Pool Worker Pool 实现
// workers 为 1 时任务按提交顺序串行执行
type Pool struct {
	name      string
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// New 创建一个新的 Worker Pool
// workers: worker 数量
// queueSize: 任务队列大小
func New(name string, workers int, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		name:      name,
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger.With("pool", name),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Debug("Worker pool started",
		"workers", workers,
		"queue_size", queueSize)

	return pool
}

// worker 工作协程
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.taskQueue:
			p.run(id, task)
		}
	}
}

// run 执行任务，捕获 panic
func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panic recovered",
				"worker_id", id,
				"panic", r)
		}
	}()
	task()
}

// Submit 提交任务到 Worker Pool
// 如果队列满了，会阻塞直到有空位、ctx 被取消或任务池关闭
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if p.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case <-p.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.taskQueue <- task:
		return nil
	}
}

// TrySubmit 尝试提交任务，如果队列满了立即返回 false
func (p *Pool) TrySubmit(task Task) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

// SubmitWait 提交任务并等待其执行完成，任务 panic 时返回错误
func (p *Pool) SubmitWait(ctx context.Context, task func() error) error {
	done := make(chan error, 1)
	wrapped := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("workerpool: task panic: %v", r)
			}
			done <- err
		}()
		err = task()
	}
	if err := p.Submit(ctx, wrapped); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		// 关闭时正在执行的任务仍会完成
		select {
		case err := <-done:
			return err
		default:
			return ErrClosed
		}
	}
}

// Shutdown 关闭 Worker Pool，等待正在执行的任务完成，队列中未执行的任务被丢弃
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.logger.Debug("Worker pool shutdown completed", "dropped", len(p.taskQueue))
}
