package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"classhub/internal/dto"
	"classhub/internal/model"
	"classhub/internal/repository"
)

// ── 评论模块业务错误 ──

var (
	ErrCommentNotFound   = errors.New("评论不存在")
	ErrCommentNotAllowed = errors.New("仅可评论已发布的公告")
	ErrCommentForbidden  = errors.New("仅评论作者或团队管理者可删除评论")
)

// CommentService 公告评论业务接口
type CommentService interface {
	Create(ctx context.Context, announcementID string, req *dto.CreateCommentRequest, callerID string) (*dto.CommentResponse, error)
	List(ctx context.Context, announcementID string, req *dto.PaginationRequest, callerID string) ([]dto.CommentResponse, int64, error)
	Delete(ctx context.Context, commentID, callerID string) error
}

type commentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCommentService 创建 CommentService 实例
func NewCommentService(repo *repository.Repository, logger *zap.Logger) CommentService {
	return &commentService{repo: repo, logger: logger}
}

func (s *commentService) Create(ctx context.Context, announcementID string, req *dto.CreateCommentRequest, callerID string) (*dto.CommentResponse, error) {
	content, err := trimRequired(req.Content)
	if err != nil {
		return nil, err
	}

	a, _, err := s.loadPublished(ctx, announcementID, callerID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		AnnouncementID: a.AnnouncementID,
		AuthorID:       callerID,
		Content:        content,
	}
	comment.CreatedBy = &callerID
	comment.UpdatedBy = &callerID

	if err := s.repo.Comment.Create(ctx, comment); err != nil {
		s.logger.Error("发表评论失败", zap.String("announcement_id", announcementID), zap.Error(err))
		return nil, err
	}
	return toCommentResponse(comment), nil
}

func (s *commentService) List(ctx context.Context, announcementID string, req *dto.PaginationRequest, callerID string) ([]dto.CommentResponse, int64, error) {
	if _, _, err := s.loadPublished(ctx, announcementID, callerID); err != nil {
		return nil, 0, err
	}

	list, total, err := s.repo.Comment.ListByAnnouncement(ctx, announcementID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询评论失败", zap.String("announcement_id", announcementID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CommentResponse, 0, len(list))
	for i := range list {
		result = append(result, *toCommentResponse(&list[i]))
	}
	return result, total, nil
}

// Delete 作者本人或团队管理角色可删除（软删除）
func (s *commentService) Delete(ctx context.Context, commentID, callerID string) error {
	comment, err := s.repo.Comment.GetByID(ctx, commentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrCommentNotFound
		}
		return err
	}

	if comment.AuthorID != callerID {
		a, err := s.repo.Announcement.GetByID(ctx, comment.AnnouncementID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrCommentNotFound
			}
			return err
		}
		if _, err := requireAuthority(ctx, s.repo, a.TeamID, callerID); err != nil {
			if errors.Is(err, ErrNotTeamAuthority) {
				return ErrCommentForbidden
			}
			return err
		}
	}

	if err := s.repo.Comment.Delete(ctx, commentID, callerID); err != nil {
		s.logger.Error("删除评论失败", zap.String("comment_id", commentID), zap.Error(err))
		return err
	}

	s.logger.Info("评论已删除", zap.String("comment_id", commentID), zap.String("operator", callerID))
	return nil
}

// loadPublished 公告必须存在、已发布，且调用者为团队成员
func (s *commentService) loadPublished(ctx context.Context, announcementID, callerID string) (*model.Announcement, *model.TeamMember, error) {
	a, err := s.repo.Announcement.GetByID(ctx, announcementID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrAnnouncementNotFound
		}
		return nil, nil, err
	}

	member, err := requireMember(ctx, s.repo, a.TeamID, callerID)
	if err != nil {
		return nil, nil, err
	}
	if a.Status != model.AnnouncementPublished {
		if member.Role.IsAuthority() {
			return nil, nil, ErrCommentNotAllowed
		}
		return nil, nil, ErrAnnouncementNotFound
	}
	return a, member, nil
}

func toCommentResponse(c *model.Comment) *dto.CommentResponse {
	resp := &dto.CommentResponse{
		ID:             c.CommentID,
		AnnouncementID: c.AnnouncementID,
		AuthorID:       c.AuthorID,
		Content:        c.Content,
		CreatedAt:      formatTime(c.CreatedAt),
	}
	if c.Author != nil {
		resp.AuthorName = c.Author.Name
	}
	return resp
}
