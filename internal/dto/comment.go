package dto

// ── 评论模块 DTO ──

// CreateCommentRequest 发表评论请求
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=2000"`
}

// CommentResponse 评论响应
type CommentResponse struct {
	ID             string `json:"id"`
	AnnouncementID string `json:"announcement_id"`
	AuthorID       string `json:"author_id"`
	AuthorName     string `json:"author_name,omitempty"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}
