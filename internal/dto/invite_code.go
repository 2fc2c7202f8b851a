package dto

// ── 邀请码模块 DTO ──

// IssueInviteCodeRequest 生成邀请码请求
// expires_at 仅做格式校验（RFC 3339），不要求晚于当前时间
type IssueInviteCodeRequest struct {
	ExpiresAt string `json:"expires_at" binding:"required"`
	MaxUses   int    `json:"max_uses"   binding:"required,min=1,max=1000"`
}

// IssueInviteCodeResponse 生成邀请码响应
type IssueInviteCodeResponse struct {
	Code string `json:"code"`
}

// RedeemInviteCodeRequest 使用邀请码请求
type RedeemInviteCodeRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

// RedeemInviteCodeResponse 使用邀请码响应
type RedeemInviteCodeResponse struct {
	TeamID string `json:"team_id"`
}

// InviteCodeResponse 邀请码列表项
type InviteCodeResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	TeamID    string `json:"team_id"`
	CreatedBy string `json:"created_by"`
	ExpiresAt string `json:"expires_at"`
	MaxUses   int    `json:"max_uses"`
	Uses      int    `json:"uses"`
	State     string `json:"state"` // active | expired | exhausted
	CreatedAt string `json:"created_at"`
}
