package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"classhub/internal/dto"
	"classhub/internal/service"
	"classhub/pkg/response"
)

// TeamHandler 团队模块 HTTP 处理器
type TeamHandler struct {
	teamSvc service.TeamService
}

// NewTeamHandler 创建 TeamHandler
func NewTeamHandler(teamSvc service.TeamService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc}
}

// CreateTeam 创建团队
// POST /api/v1/teams
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.Created(c, team)
}

// ListMyTeams 我加入的团队
// GET /api/v1/teams
func (h *TeamHandler) ListMyTeams(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	teams, err := h.teamSvc.ListMine(c.Request.Context(), callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, gin.H{"list": teams})
}

// GetTeam 团队详情
// GET /api/v1/teams/:id
func (h *TeamHandler) GetTeam(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	team, err := h.teamSvc.Get(c.Request.Context(), id, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// ListMembers 团队成员列表
// GET /api/v1/teams/:id/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	members, err := h.teamSvc.ListMembers(c.Request.Context(), id, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, gin.H{"list": members})
}

// RemoveMember 移除成员
// DELETE /api/v1/teams/:id/members/:userId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	if err := h.teamSvc.RemoveMember(c.Request.Context(), id, userID, callerID); err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, nil)
}

// Leave 退出团队
// POST /api/v1/teams/:id/leave
func (h *TeamHandler) Leave(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.teamSvc.Leave(c.Request.Context(), id, callerID); err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, nil)
}

// writeTeamError 团队成员身份相关错误，各模块共用；已处理返回 true
func writeTeamError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		response.NotFound(c, 12001, "团队不存在")
	case errors.Is(err, service.ErrNotTeamMember):
		response.Forbidden(c, 12002, "不是该团队成员")
	case errors.Is(err, service.ErrNotTeamAuthority):
		response.Forbidden(c, 12003, "需要团队教师或管理员权限")
	default:
		return false
	}
	return true
}

func handleTeamError(c *gin.Context, err error) {
	if writeTeamError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, 12004, "成员不存在")
	case errors.Is(err, service.ErrCannotRemoveSelf):
		response.BadRequest(c, 12005, "不能移除自己，请使用退出团队")
	case errors.Is(err, service.ErrOwnerCannotLeave):
		response.BadRequest(c, 12006, "团队创建者不能退出团队")
	case errors.Is(err, service.ErrCannotRemoveOwner):
		response.BadRequest(c, 12007, "不能移除团队创建者")
	case errors.Is(err, service.ErrBlankField):
		response.BadRequest(c, 10001, "参数校验失败")
	default:
		response.InternalError(c)
	}
}
