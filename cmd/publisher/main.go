// Command publisher 执行一次到期公告发布后退出，供系统 cron 或 Kubernetes CronJob 调用
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"classhub/config"
	"classhub/internal/repository"
	"classhub/internal/scheduler"
	"classhub/internal/service"
	"classhub/pkg/database"
	applogger "classhub/pkg/logger"
	"classhub/pkg/redis"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()

	var locker scheduler.Locker
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，本次执行不加锁", zap.Error(err))
	} else {
		defer rdb.Close()
		locker = rdb
	}

	repo := repository.NewRepository(db)
	announcementSvc := service.NewAnnouncementService(repo, cfg.Scheduler.Concurrency, logger)
	publisher := scheduler.NewPublisher(&cfg.Scheduler, announcementSvc, locker, logger)

	timeout := cfg.Scheduler.LockTTL
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := publisher.RunOnce(ctx)
	if errors.Is(err, scheduler.ErrSkipped) {
		logger.Info("其他实例正在执行，本次跳过")
		return
	}
	if err != nil {
		logger.Error("定时发布失败", zap.Error(err))
		os.Exit(1)
	}

	out, _ := json.Marshal(resp)
	fmt.Println(string(out))
}
