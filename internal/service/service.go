package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"classhub/config"
	"classhub/internal/repository"
	pkgerrors "classhub/pkg/errors"
	"classhub/pkg/jwt"
)

// TokenBlacklist Token 黑名单（由 Redis 实现，未配置时为 nil）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Team         TeamService
	InviteCode   InviteCodeService
	Announcement AnnouncementService
	Comment      CommentService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, blacklist, logger),
		Team:         NewTeamService(repo, logger),
		InviteCode:   NewInviteCodeService(repo, logger),
		Announcement: NewAnnouncementService(repo, cfg.Scheduler.Concurrency, logger),
		Comment:      NewCommentService(repo, logger),
		Export:       NewExportService(repo, logger),
	}
}

// ErrBlankField 必填文本去除首尾空白后为空
var ErrBlankField = pkgerrors.ErrBlankInput

// trimRequired 去除首尾空白，结果为空时返回 ErrBlankField
func trimRequired(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrBlankField
	}
	return v, nil
}

// formatTime 统一的响应时间格式
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
