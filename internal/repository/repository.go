package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Team         TeamRepository
	TeamMember   TeamMemberRepository
	InviteCode   InviteCodeRepository
	Announcement AnnouncementRepository
	Recipient    RecipientRepository
	Comment      CommentRepository

	// TxRunner 非 nil 时替代数据库事务（db 为 nil 的内存实现以此模拟提交与回滚）
	TxRunner func(ctx context.Context, fn func() error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Team:         NewTeamRepo(db),
		TeamMember:   NewTeamMemberRepo(db),
		InviteCode:   NewInviteCodeRepo(db),
		Announcement: NewAnnouncementRepo(db),
		Recipient:    NewRecipientRepo(db),
		Comment:      NewCommentRepo(db),
	}
}

// BeginTx 开启事务
// 单元测试中 Repository 由 Mock 组装（db 为 nil），此时返回 nil 事务，调用方按无事务处理
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 副本；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) (err error) {
	if r.db == nil && r.TxRunner != nil {
		return r.TxRunner(ctx, func() error { return fn(r) })
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	if tx == nil {
		return fn(r)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// IsDuplicateKey 唯一约束冲突（需 gorm.Config.TranslateError 开启）
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsNotFound 记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
