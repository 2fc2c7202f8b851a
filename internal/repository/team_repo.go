package repository

import (
	"context"

	"gorm.io/gorm"

	"classhub/internal/model"
)

// TeamRepository 团队数据访问接口
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
}

// TeamMemberRepository 团队成员数据访问接口
type TeamMemberRepository interface {
	// Create 插入成员；(user_id, team_id) 冲突时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, member *model.TeamMember) error
	Get(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
	ListByTeam(ctx context.Context, teamID string) ([]model.TeamMember, error)
	ListByUser(ctx context.Context, userID string) ([]model.TeamMember, error)
	Delete(ctx context.Context, teamID, userID string) error
}

// ── Team Repository 实现 ──

type teamRepo struct {
	db *gorm.DB
}

// NewTeamRepo 创建 TeamRepository 实例
func NewTeamRepo(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).
		Where("team_id = ?", id).
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// ── TeamMember Repository 实现 ──

type teamMemberRepo struct {
	db *gorm.DB
}

// NewTeamMemberRepo 创建 TeamMemberRepository 实例
func NewTeamMemberRepo(db *gorm.DB) TeamMemberRepository {
	return &teamMemberRepo{db: db}
}

func (r *teamMemberRepo) Create(ctx context.Context, member *model.TeamMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *teamMemberRepo) Get(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *teamMemberRepo) ListByTeam(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	var members []model.TeamMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *teamMemberRepo) ListByUser(ctx context.Context, userID string) ([]model.TeamMember, error) {
	var members []model.TeamMember
	err := r.db.WithContext(ctx).
		Preload("Team").
		Where("user_id = ?", userID).
		Order("joined_at DESC").
		Find(&members).Error
	return members, err
}

// Delete 硬删除成员关系，保证唯一约束允许再次加入
func (r *teamMemberRepo) Delete(ctx context.Context, teamID, userID string) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&model.TeamMember{}).Error
}
