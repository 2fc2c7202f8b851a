package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"classhub/internal/dto"
	"classhub/internal/service"
	pkgerrors "classhub/pkg/errors"
	"classhub/pkg/response"
)

// AnnouncementHandler 公告模块 HTTP 处理器
type AnnouncementHandler struct {
	announcementSvc service.AnnouncementService
}

// NewAnnouncementHandler 创建 AnnouncementHandler
func NewAnnouncementHandler(announcementSvc service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementSvc: announcementSvc}
}

// Create 创建公告（草稿 / 立即发布 / 定时发布）
// POST /api/v1/announcements
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req dto.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.announcementSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.Created(c, result)
}

// Update 修改公告内容（需携带 version）
// PUT /api/v1/announcements/:id
func (h *AnnouncementHandler) Update(c *gin.Context) {
	var req dto.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.announcementSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OK(c, result)
}

// Get 公告详情
// GET /api/v1/announcements/:id
func (h *AnnouncementHandler) Get(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.announcementSvc.Get(c.Request.Context(), id, callerID)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OK(c, result)
}

// ListByTeam 团队公告列表
// GET /api/v1/teams/:id/announcements?status=&page=&page_size=
func (h *AnnouncementHandler) ListByTeam(c *gin.Context) {
	var req dto.AnnouncementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	list, total, err := h.announcementSvc.ListByTeam(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Schedule 设置定时发布
// POST /api/v1/announcements/:id/schedule
func (h *AnnouncementHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.announcementSvc.Schedule(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OK(c, result)
}

// PublishNow 立即发布
// POST /api/v1/announcements/:id/publish
func (h *AnnouncementHandler) PublishNow(c *gin.Context) {
	h.transition(c, h.announcementSvc.PublishNow)
}

// Cancel 取消定时发布
// POST /api/v1/announcements/:id/cancel
func (h *AnnouncementHandler) Cancel(c *gin.Context) {
	h.transition(c, h.announcementSvc.Cancel)
}

// RevertToDraft 定时公告退回草稿
// POST /api/v1/announcements/:id/revert
func (h *AnnouncementHandler) RevertToDraft(c *gin.Context) {
	h.transition(c, h.announcementSvc.RevertToDraft)
}

type transitionFunc func(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error)

func (h *AnnouncementHandler) transition(c *gin.Context, fn transitionFunc) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), id, callerID)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OK(c, result)
}

// Inbox 我的公告收件箱
// GET /api/v1/inbox
func (h *AnnouncementHandler) Inbox(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.announcementSvc.ListInbox(c.Request.Context(), callerID, &req)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// MarkRead 标记已读
// POST /api/v1/inbox/:id/read
func (h *AnnouncementHandler) MarkRead(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.announcementSvc.MarkRead(c.Request.Context(), id, callerID); err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OK(c, nil)
}

func handleAnnouncementError(c *gin.Context, err error) {
	if writeTeamError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrAnnouncementNotFound):
		response.NotFound(c, 14001, "公告不存在")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 14002, "公告当前状态不允许该操作")
	case errors.Is(err, service.ErrAnnouncementNotEditable):
		response.Conflict(c, 14003, "仅草稿或待发布公告可修改")
	case errors.Is(err, service.ErrInvalidScheduledDate):
		response.BadRequest(c, 14004, "定时发布时间格式无效")
	case errors.Is(err, service.ErrScheduleInPast):
		response.BadRequest(c, 14005, "定时发布时间必须晚于当前时间")
	case errors.Is(err, service.ErrPublishConflict):
		response.BadRequest(c, 14006, "不能同时立即发布与定时发布")
	case pkgerrors.IsConflict(err):
		response.Conflict(c, 14007, "公告已被修改，请刷新后重试")
	case errors.Is(err, service.ErrBlankField):
		response.BadRequest(c, 10001, "参数校验失败")
	default:
		response.InternalError(c)
	}
}
