package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/anotoki/internal/repository"
	"github.com/d60-Lab/anotoki/pkg/logger"
)

// OrphanSweeper 定期删除所属帖子已不存在的反应。
// 删除帖子本身是事务化的，这里只兜底历史数据或异常路径留下的孤儿行。
type OrphanSweeper struct {
	reactions repository.ReactionRepository
	interval  time.Duration
	batchSize int
}

func NewOrphanSweeper(reactions repository.ReactionRepository, interval time.Duration, batchSize int) *OrphanSweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &OrphanSweeper{reactions: reactions, interval: interval, batchSize: batchSize}
}

// Start 启动后台轮询；interval <= 0 时不启动。返回的停止函数等待当前一轮结束。
func (w *OrphanSweeper) Start() func(context.Context) error {
	if w.interval <= 0 {
		return func(context.Context) error { return nil }
	}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.loop(stop)
	}()
	return func(ctx context.Context) error {
		close(stop)
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *OrphanSweeper) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.interval)
			n, err := w.SweepOnce(ctx)
			cancel()
			if err != nil {
				logger.Warn("orphan sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("orphan reactions reclaimed", zap.Int64("count", n))
			}
		}
	}
}

// SweepOnce 分批删除直到没有孤儿行，返回删除总数
func (w *OrphanSweeper) SweepOnce(ctx context.Context) (int64, error) {
	var total int64
	for {
		n, err := w.reactions.DeleteOrphans(ctx, w.batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(w.batchSize) {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}
