package dto

// ── 团队模块 DTO ──

// CreateTeamRequest 创建团队请求
type CreateTeamRequest struct {
	Name        string `json:"name"        binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// TeamResponse 团队信息响应
type TeamResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	MyRole      string `json:"my_role,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// TeamMemberResponse 团队成员响应
type TeamMemberResponse struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}
