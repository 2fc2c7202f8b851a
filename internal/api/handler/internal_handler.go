package handler

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"

	"classhub/internal/dto"
	"classhub/internal/scheduler"
	"classhub/pkg/response"
)

// CronSecretHeader 外部调度器触发定时发布时携带的共享密钥请求头
const CronSecretHeader = "X-Cron-Secret"

// DueRunner 执行一次定时发布批次（含多实例互斥）
type DueRunner interface {
	RunOnce(ctx context.Context) (*dto.PublishDueResponse, error)
}

// InternalHandler 供外部调度器调用的内部接口
type InternalHandler struct {
	runner DueRunner
	secret string
}

// NewInternalHandler 创建 InternalHandler
func NewInternalHandler(runner DueRunner, secret string) *InternalHandler {
	return &InternalHandler{runner: runner, secret: secret}
}

// PublishDue 触发一次定时发布
// POST /api/v1/internal/announcements/publish-due
func (h *InternalHandler) PublishDue(c *gin.Context) {
	given := c.GetHeader(CronSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		response.Unauthorized(c, 17001, "触发密钥无效")
		return
	}

	result, err := h.runner.RunOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrSkipped) {
			response.Conflict(c, 17002, "定时发布批次正在执行")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
