package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"classhub/internal/model"
)

// InviteCodeRepository 邀请码数据访问接口
type InviteCodeRepository interface {
	// Create 插入邀请码；code 冲突时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, code *model.InviteCode) error
	GetByCode(ctx context.Context, code string) (*model.InviteCode, error)
	// ExistsByCode 检查全局唯一性（含已过期的邀请码）
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListByTeam(ctx context.Context, teamID string) ([]model.InviteCode, error)
	// IncrementUses 条件原子自增：仅当 uses < max_uses 且未过期时成功，返回是否命中
	IncrementUses(ctx context.Context, inviteCodeID string, now time.Time) (bool, error)
}

type inviteCodeRepo struct {
	db *gorm.DB
}

// NewInviteCodeRepo 创建 InviteCodeRepository 实例
func NewInviteCodeRepo(db *gorm.DB) InviteCodeRepository {
	return &inviteCodeRepo{db: db}
}

func (r *inviteCodeRepo) Create(ctx context.Context, code *model.InviteCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *inviteCodeRepo) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	var invite model.InviteCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *inviteCodeRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.InviteCode{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *inviteCodeRepo) ListByTeam(ctx context.Context, teamID string) ([]model.InviteCode, error) {
	var codes []model.InviteCode
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&codes).Error
	return codes, err
}

// IncrementUses UPDATE invite_codes SET uses = uses + 1
// WHERE invite_code_id = ? AND uses < max_uses AND expires_at > now
func (r *inviteCodeRepo) IncrementUses(ctx context.Context, inviteCodeID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.InviteCode{}).
		Where("invite_code_id = ? AND uses < max_uses AND expires_at > ?", inviteCodeID, now).
		Updates(map[string]interface{}{
			"uses":       gorm.Expr("uses + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
