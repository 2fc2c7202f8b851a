package repository

import (
	"context"

	"gorm.io/gorm"

	"classhub/internal/model"
)

// CommentRepository 评论数据访问接口
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	ListByAnnouncement(ctx context.Context, announcementID string, offset, limit int) ([]model.Comment, int64, error)
	Delete(ctx context.Context, id, deletedBy string) error
}

type commentRepo struct {
	db *gorm.DB
}

// NewCommentRepo 创建 CommentRepository 实例
func NewCommentRepo(db *gorm.DB) CommentRepository {
	return &commentRepo{db: db}
}

func (r *commentRepo) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepo) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.WithContext(ctx).
		Where("comment_id = ?", id).
		First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepo) ListByAnnouncement(ctx context.Context, announcementID string, offset, limit int) ([]model.Comment, int64, error) {
	var list []model.Comment
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("announcement_id = ?", announcementID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Author").
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// Delete 软删除并记录删除人
func (r *commentRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Comment{}).
			Where("comment_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Where("comment_id = ?", id).Delete(&model.Comment{}).Error
	})
}
