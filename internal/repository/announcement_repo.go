package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"classhub/internal/model"
	pkgerrors "classhub/pkg/errors"
)

// AnnouncementListFilters 公告列表过滤条件
type AnnouncementListFilters struct {
	TeamID   string
	Statuses []model.AnnouncementStatus
}

// AnnouncementRepository 公告数据访问接口
type AnnouncementRepository interface {
	Create(ctx context.Context, a *model.Announcement) error
	GetByID(ctx context.Context, id string) (*model.Announcement, error)
	List(ctx context.Context, filters *AnnouncementListFilters, offset, limit int) ([]model.Announcement, int64, error)
	// Update 乐观锁更新，版本不一致返回 pkgerrors.ErrOptimisticLock
	Update(ctx context.Context, a *model.Announcement) error
	// ListDue 查询 status = SCHEDULED 且 scheduled_date <= now 的公告
	ListDue(ctx context.Context, now time.Time) ([]model.Announcement, error)
	// PublishScheduled 条件迁移 SCHEDULED → PUBLISHED 并生成接收人，返回是否由本次调用完成迁移
	PublishScheduled(ctx context.Context, id string, now time.Time) (bool, error)
}

// RecipientRepository 公告接收人数据访问接口
type RecipientRepository interface {
	// MaterializeForTeam 按团队当前成员生成接收人，已存在的忽略
	MaterializeForTeam(ctx context.Context, announcementID, teamID string) (int64, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.AnnouncementRecipient, int64, error)
	MarkRead(ctx context.Context, announcementID, userID string, now time.Time) (bool, error)
}

// ── Announcement Repository 实现 ──

type announcementRepo struct {
	db *gorm.DB
}

// NewAnnouncementRepo 创建 AnnouncementRepository 实例
func NewAnnouncementRepo(db *gorm.DB) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) Create(ctx context.Context, a *model.Announcement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *announcementRepo) GetByID(ctx context.Context, id string) (*model.Announcement, error) {
	var a model.Announcement
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("announcement_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *announcementRepo) List(ctx context.Context, filters *AnnouncementListFilters, offset, limit int) ([]model.Announcement, int64, error) {
	var list []model.Announcement
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Announcement{})
	if filters != nil {
		if filters.TeamID != "" {
			db = db.Where("team_id = ?", filters.TeamID)
		}
		if len(filters.Statuses) > 0 {
			db = db.Where("status IN ?", filters.Statuses)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Sender").
		Order("COALESCE(published_at, scheduled_date, created_at) DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *announcementRepo) Update(ctx context.Context, a *model.Announcement) error {
	oldVersion := a.Version
	result := r.db.WithContext(ctx).
		Model(&model.Announcement{}).
		Where("announcement_id = ? AND version = ?", a.AnnouncementID, oldVersion).
		Updates(map[string]interface{}{
			"title":          a.Title,
			"content":        a.Content,
			"priority":       a.Priority,
			"status":         a.Status,
			"scheduled_date": a.ScheduledDate,
			"published_at":   a.PublishedAt,
			"updated_by":     a.UpdatedBy,
			"updated_at":     time.Now(),
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version = oldVersion + 1
	return nil
}

func (r *announcementRepo) ListDue(ctx context.Context, now time.Time) ([]model.Announcement, error) {
	var list []model.Announcement
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_date <= ?", model.AnnouncementScheduled, now).
		Order("scheduled_date ASC").
		Find(&list).Error
	return list, err
}

func (r *announcementRepo) PublishScheduled(ctx context.Context, id string, now time.Time) (bool, error) {
	published := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Announcement{}).
			Where("announcement_id = ? AND status = ? AND scheduled_date <= ?", id, model.AnnouncementScheduled, now).
			Updates(map[string]interface{}{
				"status":       model.AnnouncementPublished,
				"published_at": now,
				"updated_at":   now,
				"version":      gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 已被其他批次或用户操作迁移
			return nil
		}

		var a model.Announcement
		if err := tx.Select("team_id").Where("announcement_id = ?", id).First(&a).Error; err != nil {
			return err
		}
		if _, err := materializeRecipients(tx, id, a.TeamID); err != nil {
			return err
		}
		published = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return published, nil
}

// ── Recipient Repository 实现 ──

type recipientRepo struct {
	db *gorm.DB
}

// NewRecipientRepo 创建 RecipientRepository 实例
func NewRecipientRepo(db *gorm.DB) RecipientRepository {
	return &recipientRepo{db: db}
}

func (r *recipientRepo) MaterializeForTeam(ctx context.Context, announcementID, teamID string) (int64, error) {
	return materializeRecipients(r.db.WithContext(ctx), announcementID, teamID)
}

func materializeRecipients(db *gorm.DB, announcementID, teamID string) (int64, error) {
	result := db.Exec(`
		INSERT INTO announcement_recipients (announcement_id, user_id, created_at)
		SELECT ?, user_id, CURRENT_TIMESTAMP
		FROM team_members
		WHERE team_id = ?
		ON CONFLICT (announcement_id, user_id) DO NOTHING`,
		announcementID, teamID,
	)
	return result.RowsAffected, result.Error
}

func (r *recipientRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.AnnouncementRecipient, int64, error) {
	var list []model.AnnouncementRecipient
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.AnnouncementRecipient{}).
		Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Announcement").
		Preload("Announcement.Sender").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// MarkRead 首次标记已读时写入 read_at，重复标记保持原值
func (r *recipientRepo) MarkRead(ctx context.Context, announcementID, userID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AnnouncementRecipient{}).
		Where("announcement_id = ? AND user_id = ?", announcementID, userID).
		Update("read_at", gorm.Expr("COALESCE(read_at, ?)", now))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
