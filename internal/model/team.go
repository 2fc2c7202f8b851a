package model

import "time"

// Team 团队（班级）表 — 对应 teams
type Team struct {
	TeamID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"team_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:text;not null;default:''"                  json:"description"`
	OwnerID     string `gorm:"type:uuid;not null"                             json:"owner_id"`
	VersionedModel
}

// TableName 指定表名
func (Team) TableName() string { return "teams" }

// TeamMember 团队成员表 — 对应 team_members
// (user_id, team_id) 由唯一约束 uk_team_members_user_team 保证至多一行
type TeamMember struct {
	TeamMemberID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"team_member_id"`
	TeamID       string    `gorm:"type:uuid;not null;uniqueIndex:uk_team_members_user_team,priority:2" json:"team_id"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:uk_team_members_user_team,priority:1" json:"user_id"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	JoinedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"joined_at"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	Team *Team `gorm:"foreignKey:TeamID;references:TeamID" json:"team,omitempty"`
}

// TableName 指定表名
func (TeamMember) TableName() string { return "team_members" }
