package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"classhub/config"
	"classhub/internal/dto"
	"classhub/pkg/redis"
)

// lockKey 多实例部署时保证同一时刻仅一个批次执行
const lockKey = "publisher:lock"

// ErrSkipped 其他实例正在执行本批次
var ErrSkipped = errors.New("定时发布批次已由其他实例执行")

// DuePublisher 执行一次到期公告发布
type DuePublisher interface {
	PublishDue(ctx context.Context) (*dto.PublishDueResponse, error)
}

// Locker 分布式互斥锁；成功返回释放函数，锁被占用返回 redis.ErrLockHeld
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Publisher 周期性触发 PublishDue
// locker 为 nil 时不加锁（单实例部署）
type Publisher struct {
	svc     DuePublisher
	locker  Locker
	lockTTL time.Duration
	spec    string
	timeout time.Duration
	logger  *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewPublisher 创建定时发布器
func NewPublisher(cfg *config.SchedulerConfig, svc DuePublisher, locker Locker, logger *zap.Logger) *Publisher {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 50 * time.Second
	}
	return &Publisher{
		svc:     svc,
		locker:  locker,
		lockTTL: ttl,
		spec:    cfg.Spec,
		timeout: ttl,
		logger:  logger.Named("publisher"),
	}
}

// RunOnce 获取锁后执行一次批次；锁被其他实例持有时返回 ErrSkipped
func (p *Publisher) RunOnce(ctx context.Context) (*dto.PublishDueResponse, error) {
	if p.locker != nil {
		release, err := p.locker.AcquireLock(ctx, lockKey, p.lockTTL)
		if err != nil {
			if errors.Is(err, redis.ErrLockHeld) {
				return nil, ErrSkipped
			}
			// Redis 不可用时降级为无锁执行，依赖条件更新保证幂等
			p.logger.Warn("获取定时发布锁失败，降级为无锁执行", zap.Error(err))
		} else {
			defer func() {
				if err := release(context.Background()); err != nil {
					p.logger.Warn("释放定时发布锁失败", zap.Error(err))
				}
			}()
		}
	}

	return p.svc.PublishDue(ctx)
}

// Start 按 cron 表达式启动周期任务
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(p.spec, p.tick); err != nil {
		return fmt.Errorf("解析定时发布表达式失败: %w", err)
	}
	c.Start()
	p.cron = c

	p.logger.Info("定时发布已启动", zap.String("spec", p.spec))
	return nil
}

// Stop 停止调度并等待进行中的批次完成
func (p *Publisher) Stop(ctx context.Context) {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c == nil {
		return
	}

	done := c.Stop().Done()
	select {
	case <-done:
		p.logger.Info("定时发布已停止")
	case <-ctx.Done():
		p.logger.Warn("等待定时发布批次结束超时")
	}
}

func (p *Publisher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	resp, err := p.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrSkipped):
		p.logger.Debug("跳过本次定时发布", zap.Error(err))
	case err != nil:
		p.logger.Error("定时发布批次失败", zap.Error(err))
	case resp.PublishedCount > 0:
		p.logger.Info("定时发布完成",
			zap.Int("published", resp.PublishedCount),
			zap.Strings("ids", resp.PublishedIDs),
		)
	}
}
