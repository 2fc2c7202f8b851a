package model

import "time"

// InviteCode 团队邀请码表 — 对应 invite_codes
// 不变量：0 <= Uses <= MaxUses；Code 全局唯一（含已过期的邀请码）
type InviteCode struct {
	InviteCodeID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"invite_code_id"`
	Code         string    `gorm:"type:varchar(6);not null;uniqueIndex:uk_invite_codes_code" json:"code"`
	TeamID       string    `gorm:"type:uuid;not null"                             json:"team_id"`
	CreatedBy    string    `gorm:"type:uuid;not null"                             json:"created_by"`
	ExpiresAt    time.Time `gorm:"not null"                                       json:"expires_at"`
	MaxUses      int       `gorm:"not null"                                       json:"max_uses"`
	Uses         int       `gorm:"not null;default:0"                             json:"uses"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (InviteCode) TableName() string { return "invite_codes" }

// IsExpired now >= ExpiresAt 即视为过期
func (c *InviteCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsExhausted 使用次数已达上限
func (c *InviteCode) IsExhausted() bool {
	return c.Uses >= c.MaxUses
}

// State 派生状态：active | expired | exhausted
func (c *InviteCode) State(now time.Time) string {
	switch {
	case c.IsExpired(now):
		return "expired"
	case c.IsExhausted():
		return "exhausted"
	default:
		return "active"
	}
}
