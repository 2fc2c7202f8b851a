package model

import "time"

// AnnouncementStatus 公告状态
type AnnouncementStatus string

const (
	AnnouncementDraft     AnnouncementStatus = "DRAFT"
	AnnouncementScheduled AnnouncementStatus = "SCHEDULED"
	AnnouncementPublished AnnouncementStatus = "PUBLISHED"
	AnnouncementCancelled AnnouncementStatus = "CANCELLED"
)

// announcementTransitions 允许的状态迁移；PUBLISHED / CANCELLED 为终态
var announcementTransitions = map[AnnouncementStatus][]AnnouncementStatus{
	AnnouncementDraft:     {AnnouncementScheduled, AnnouncementPublished},
	AnnouncementScheduled: {AnnouncementPublished, AnnouncementCancelled, AnnouncementDraft},
}

// CanTransition 判断 s → to 是否为合法迁移
func (s AnnouncementStatus) CanTransition(to AnnouncementStatus) bool {
	for _, next := range announcementTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 终态不再迁移
func (s AnnouncementStatus) IsTerminal() bool {
	return len(announcementTransitions[s]) == 0
}

// IsEditable 仅草稿与待发布公告允许修改内容
func (s AnnouncementStatus) IsEditable() bool {
	return s == AnnouncementDraft || s == AnnouncementScheduled
}

// AnnouncementPriority 公告优先级
type AnnouncementPriority string

const (
	PriorityLow    AnnouncementPriority = "LOW"
	PriorityNormal AnnouncementPriority = "NORMAL"
	PriorityHigh   AnnouncementPriority = "HIGH"
	PriorityUrgent AnnouncementPriority = "URGENT"
)

// Announcement 公告表 — 对应 announcements
// 不变量：Status == SCHEDULED 时 ScheduledDate 非空
type Announcement struct {
	AnnouncementID string               `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"announcement_id"`
	TeamID         string               `gorm:"type:uuid;not null"                             json:"team_id"`
	SenderID       string               `gorm:"type:uuid;not null"                             json:"sender_id"`
	Title          string               `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string               `gorm:"type:text;not null"                             json:"content"`
	Priority       AnnouncementPriority `gorm:"type:varchar(10);not null;default:'NORMAL'"     json:"priority"`
	Status         AnnouncementStatus   `gorm:"type:varchar(10);not null;default:'DRAFT'"      json:"status"`
	ScheduledDate  *time.Time           `json:"scheduled_date,omitempty"`
	PublishedAt    *time.Time           `json:"published_at,omitempty"`
	VersionedModel

	// 关联
	Sender *User `gorm:"foreignKey:SenderID;references:UserID" json:"sender,omitempty"`
}

// TableName 指定表名
func (Announcement) TableName() string { return "announcements" }

// AnnouncementRecipient 公告接收人表 — 对应 announcement_recipients
// 在公告发布时按团队成员生成
type AnnouncementRecipient struct {
	AnnouncementID string     `gorm:"type:uuid;primaryKey"               json:"announcement_id"`
	UserID         string     `gorm:"type:uuid;primaryKey"               json:"user_id"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Announcement *Announcement `gorm:"foreignKey:AnnouncementID;references:AnnouncementID" json:"announcement,omitempty"`
}

// TableName 指定表名
func (AnnouncementRecipient) TableName() string { return "announcement_recipients" }
