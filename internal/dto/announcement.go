package dto

// ── 公告模块 DTO ──

// CreateAnnouncementRequest 创建公告请求
// publish_now 与 scheduled_date 互斥；均未提供时保存为草稿
type CreateAnnouncementRequest struct {
	TeamID        string  `json:"team_id"        binding:"required,uuid"`
	Title         string  `json:"title"          binding:"required,min=1,max=200"`
	Content       string  `json:"content"        binding:"required,min=1"`
	Priority      string  `json:"priority"       binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	PublishNow    bool    `json:"publish_now"`
	ScheduledDate *string `json:"scheduled_date" binding:"omitempty"`
}

// UpdateAnnouncementRequest 修改公告内容请求
type UpdateAnnouncementRequest struct {
	Title    *string `json:"title"    binding:"omitempty,min=1,max=200"`
	Content  *string `json:"content"  binding:"omitempty,min=1"`
	Priority *string `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Version  int     `json:"version"  binding:"required,min=1"`
}

// ScheduleAnnouncementRequest 设置定时发布请求
type ScheduleAnnouncementRequest struct {
	ScheduledDate string `json:"scheduled_date" binding:"required"`
}

// AnnouncementListRequest 公告列表查询参数
type AnnouncementListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=DRAFT SCHEDULED PUBLISHED CANCELLED"`
}

// AnnouncementResponse 公告响应
type AnnouncementResponse struct {
	ID            string  `json:"id"`
	TeamID        string  `json:"team_id"`
	SenderID      string  `json:"sender_id"`
	SenderName    string  `json:"sender_name,omitempty"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	ScheduledDate *string `json:"scheduled_date,omitempty"`
	PublishedAt   *string `json:"published_at,omitempty"`
	Version       int     `json:"version"`
	CreatedAt     string  `json:"created_at"`
}

// InboxItemResponse 收件箱条目
type InboxItemResponse struct {
	Announcement AnnouncementResponse `json:"announcement"`
	Read         bool                 `json:"read"`
	ReadAt       *string              `json:"read_at,omitempty"`
}

// PublishDueResponse 定时发布批次结果
type PublishDueResponse struct {
	PublishedCount int      `json:"published_count"`
	PublishedIDs   []string `json:"published_ids"`
}
