package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"classhub/internal/dto"
	"classhub/internal/service"
	"classhub/pkg/response"
)

// CommentHandler 公告评论 HTTP 处理器
type CommentHandler struct {
	commentSvc service.CommentService
}

// NewCommentHandler 创建 CommentHandler
func NewCommentHandler(commentSvc service.CommentService) *CommentHandler {
	return &CommentHandler{commentSvc: commentSvc}
}

// Create 发表评论
// POST /api/v1/announcements/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req dto.CreateCommentRequest
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

	result, err := h.commentSvc.Create(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleCommentError(c, err)
		return
	}

	response.Created(c, result)
}

// List 评论列表
// GET /api/v1/announcements/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	var req dto.PaginationRequest
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

	list, total, err := h.commentSvc.List(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleCommentError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Delete 删除评论
// DELETE /api/v1/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.commentSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		handleCommentError(c, err)
		return
	}

	response.OK(c, nil)
}

func handleCommentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCommentNotFound):
		response.NotFound(c, 15001, "评论不存在")
	case errors.Is(err, service.ErrCommentNotAllowed):
		response.Conflict(c, 15002, "仅可评论已发布的公告")
	case errors.Is(err, service.ErrCommentForbidden):
		response.Forbidden(c, 15003, "仅评论作者或团队管理者可删除评论")
	default:
		handleAnnouncementError(c, err)
	}
}
