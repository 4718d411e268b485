// internal/pkg/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Task 是一个周期性后台任务。与请求处理完全解耦，
// 由 bootstrap 在服务生命周期内调度执行。
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Loop 返回一个阻塞循环，按固定间隔执行任务，context 取消时退出。
// 单次执行的失败由任务自己消化，不会中断循环。
func (t Task) Loop() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(t.Interval)
		defer ticker.Stop()

		zlog.Info().Str("task", t.Name).Dur("interval", t.Interval).Msg("background task started")
		for {
			select {
			case <-ctx.Done():
				zlog.Info().Str("task", t.Name).Msg("background task stopping")
				return nil
			case <-ticker.C:
				t.Run(ctx)
			}
		}
	}
}
