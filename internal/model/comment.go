package model

// Comment 公告评论表 — 对应 comments
type Comment struct {
	CommentID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"comment_id"`
	AnnouncementID string `gorm:"type:uuid;not null"                             json:"announcement_id"`
	AuthorID       string `gorm:"type:uuid;not null"                             json:"author_id"`
	Content        string `gorm:"type:text;not null"                             json:"content"`
	SoftDeleteModel

	Author *User `gorm:"foreignKey:AuthorID;references:UserID" json:"author,omitempty"`
}

// TableName 指定表名
func (Comment) TableName() string { return "comments" }
