package handler

import "classhub/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Team         *TeamHandler
	InviteCode   *InviteCodeHandler
	Announcement *AnnouncementHandler
	Comment      *CommentHandler
	Export       *ExportHandler
	Internal     *InternalHandler
}

// NewHandler 创建 Handler 聚合
// runner 为定时发布执行器；triggerSecret 为空时外部触发接口拒绝所有请求
func NewHandler(svc *service.Service, runner DueRunner, triggerSecret string) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Team:         NewTeamHandler(svc.Team),
		InviteCode:   NewInviteCodeHandler(svc.InviteCode),
		Announcement: NewAnnouncementHandler(svc.Announcement),
		Comment:      NewCommentHandler(svc.Comment),
		Export:       NewExportHandler(svc.Export),
		Internal:     NewInternalHandler(runner, triggerSecret),
	}
}
