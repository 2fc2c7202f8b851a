package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classhub/internal/dto"
	"classhub/internal/service"
	"classhub/pkg/response"
)

// InviteCodeHandler 邀请码模块 HTTP 处理器
type InviteCodeHandler struct {
	inviteSvc service.InviteCodeService
}

// NewInviteCodeHandler 创建 InviteCodeHandler
func NewInviteCodeHandler(inviteSvc service.InviteCodeService) *InviteCodeHandler {
	return &InviteCodeHandler{inviteSvc: inviteSvc}
}

// Issue 生成邀请码
// POST /api/v1/teams/:id/invite-codes
func (h *InviteCodeHandler) Issue(c *gin.Context) {
	var req dto.IssueInviteCodeRequest
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

	result, err := h.inviteSvc.Issue(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleInviteError(c, err)
		return
	}

	response.Created(c, result)
}

// List 团队邀请码列表（含状态）
// GET /api/v1/teams/:id/invite-codes
func (h *InviteCodeHandler) List(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	codes, err := h.inviteSvc.ListByTeam(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleInviteError(c, err)
		return
	}

	response.OK(c, gin.H{"list": codes})
}

// Redeem 使用邀请码加入团队
// POST /api/v1/invite-codes/redeem
func (h *InviteCodeHandler) Redeem(c *gin.Context) {
	var req dto.RedeemInviteCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.inviteSvc.Redeem(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleInviteError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *InviteCodeHandler) handleInviteError(c *gin.Context, err error) {
	if writeTeamError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrInviteCodeInvalid):
		response.NotFound(c, 13001, "邀请码无效")
	case errors.Is(err, service.ErrInviteCodeExpired):
		response.Conflict(c, 13002, "邀请码已过期")
	case errors.Is(err, service.ErrInviteCodeExhausted):
		response.Conflict(c, 13003, "邀请码已用完")
	case errors.Is(err, service.ErrAlreadyMember):
		response.Conflict(c, 13004, "已是该团队成员")
	case errors.Is(err, service.ErrInvalidExpiresAt):
		response.BadRequest(c, 13005, "过期时间格式无效")
	case errors.Is(err, service.ErrInvalidMaxUses):
		response.BadRequest(c, 13006, "最大使用次数必须在 1-1000 之间")
	case errors.Is(err, service.ErrInviteCodeGeneration):
		response.Error(c, http.StatusServiceUnavailable, 13007, "生成邀请码失败，请稍后重试")
	default:
		response.InternalError(c)
	}
}
