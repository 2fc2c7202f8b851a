package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classhub/internal/dto"
	"classhub/internal/model"
	"classhub/internal/repository"
)

// ── 邀请码模块业务错误 ──

var (
	ErrInvalidExpiresAt     = errors.New("过期时间格式无效，应为 RFC 3339")
	ErrInvalidMaxUses       = errors.New("最大使用次数必须在 1-1000 之间")
	ErrInviteCodeGeneration = errors.New("生成唯一邀请码失败")
	ErrInviteCodeInvalid    = errors.New("邀请码无效")
	ErrInviteCodeExpired    = errors.New("邀请码已过期")
	ErrInviteCodeExhausted  = errors.New("邀请码已用完")
	ErrAlreadyMember        = errors.New("已是该团队成员")
)

const (
	inviteCodeLength      = 6
	inviteCodeFiller      = 'A'
	maxInviteCodeAttempts = 10
	minInviteCodeUses     = 1
	maxInviteCodeUses     = 1000
)

// InviteCodeService 邀请码业务接口
type InviteCodeService interface {
	// Issue 由团队教师 / 管理员 / 教务生成邀请码
	Issue(ctx context.Context, teamID string, req *dto.IssueInviteCodeRequest, callerID string) (*dto.IssueInviteCodeResponse, error)
	// Redeem 使用邀请码以 student 身份加入团队
	Redeem(ctx context.Context, req *dto.RedeemInviteCodeRequest, callerID string) (*dto.RedeemInviteCodeResponse, error)
	ListByTeam(ctx context.Context, teamID, callerID string) ([]dto.InviteCodeResponse, error)
}

type inviteCodeService struct {
	repo     *repository.Repository
	logger   *zap.Logger
	generate func() string
	now      func() time.Time
}

// NewInviteCodeService 创建 InviteCodeService 实例
func NewInviteCodeService(repo *repository.Repository, logger *zap.Logger) InviteCodeService {
	return &inviteCodeService{
		repo:     repo,
		logger:   logger,
		generate: randomInviteCode,
		now:      time.Now,
	}
}

// ────────────────────── 邀请码生成 ──────────────────────

// randomInviteCode 取 UUID 随机字节的 URL-safe base64 作为短标识
func randomInviteCode() string {
	id := uuid.New()
	return normalizeInviteCode(base64.RawURLEncoding.EncodeToString(id[:]))
}

// normalizeInviteCode 转大写，[A-Z0-9] 以外的字符替换为 'A'，截取 / 补齐到 6 位
func normalizeInviteCode(raw string) string {
	upper := strings.ToUpper(raw)
	b := make([]byte, 0, inviteCodeLength)
	for i := 0; i < len(upper) && len(b) < inviteCodeLength; i++ {
		ch := upper[i]
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b = append(b, ch)
		} else {
			b = append(b, inviteCodeFiller)
		}
	}
	for len(b) < inviteCodeLength {
		b = append(b, inviteCodeFiller)
	}
	return string(b)
}

// ────────────────────── Issue ──────────────────────

func (s *inviteCodeService) Issue(ctx context.Context, teamID string, req *dto.IssueInviteCodeRequest, callerID string) (*dto.IssueInviteCodeResponse, error) {
	// 1. 输入校验（不访问数据库）
	expiresAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ExpiresAt))
	if err != nil {
		return nil, ErrInvalidExpiresAt
	}
	if req.MaxUses < minInviteCodeUses || req.MaxUses > maxInviteCodeUses {
		return nil, ErrInvalidMaxUses
	}

	// 2. 权限校验
	if _, err := requireAuthority(ctx, s.repo, teamID, callerID); err != nil {
		return nil, err
	}

	// 3. 生成全局唯一邀请码，冲突重试，上限 10 次
	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		candidate := s.generate()

		exists, err := s.repo.InviteCode.ExistsByCode(ctx, candidate)
		if err != nil {
			s.logger.Error("检查邀请码唯一性失败", zap.Error(err))
			return nil, err
		}
		if exists {
			s.logger.Debug("邀请码冲突，重新生成", zap.Int("attempt", attempt))
			continue
		}

		invite := &model.InviteCode{
			Code:      candidate,
			TeamID:    teamID,
			CreatedBy: callerID,
			ExpiresAt: expiresAt.UTC(),
			MaxUses:   req.MaxUses,
			Uses:      0,
		}
		if err := s.repo.InviteCode.Create(ctx, invite); err != nil {
			// 检查与插入之间被并发占用，按冲突处理
			if repository.IsDuplicateKey(err) {
				s.logger.Debug("邀请码插入冲突，重新生成", zap.Int("attempt", attempt))
				continue
			}
			s.logger.Error("保存邀请码失败", zap.Error(err))
			return nil, err
		}

		s.logger.Info("邀请码已生成",
			zap.String("team_id", teamID),
			zap.String("created_by", callerID),
			zap.Int("max_uses", req.MaxUses),
			zap.Time("expires_at", invite.ExpiresAt),
		)
		return &dto.IssueInviteCodeResponse{Code: candidate}, nil
	}

	s.logger.Warn("邀请码生成重试次数耗尽", zap.String("team_id", teamID), zap.Int("attempts", maxInviteCodeAttempts))
	return nil, ErrInviteCodeGeneration
}

// ────────────────────── Redeem ──────────────────────

func (s *inviteCodeService) Redeem(ctx context.Context, req *dto.RedeemInviteCodeRequest, callerID string) (*dto.RedeemInviteCodeResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	// 1. 查询邀请码
	invite, err := s.repo.InviteCode.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInviteCodeInvalid
		}
		s.logger.Error("查询邀请码失败", zap.Error(err))
		return nil, err
	}

	// 2. 过期 / 用尽检查
	now := s.now()
	if invite.IsExpired(now) {
		return nil, ErrInviteCodeExpired
	}
	if invite.IsExhausted() {
		return nil, ErrInviteCodeExhausted
	}

	// 3. 已是成员则拒绝
	if _, err := s.repo.TeamMember.Get(ctx, invite.TeamID, callerID); err == nil {
		return nil, ErrAlreadyMember
	} else if !repository.IsNotFound(err) {
		s.logger.Error("查询团队成员失败", zap.Error(err))
		return nil, err
	}

	// 4. 事务内插入成员 + 条件自增使用次数
	//    唯一约束 (user_id, team_id) 与 WHERE uses < max_uses 共同防止并发超用
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		member := &model.TeamMember{
			TeamID:   invite.TeamID,
			UserID:   callerID,
			Role:     model.RoleStudent,
			JoinedAt: now,
		}
		if err := txRepo.TeamMember.Create(ctx, member); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrAlreadyMember
			}
			return err
		}

		ok, err := txRepo.InviteCode.IncrementUses(ctx, invite.InviteCodeID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInviteCodeExhausted
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyMember) && !errors.Is(err, ErrInviteCodeExhausted) {
			s.logger.Error("使用邀请码失败", zap.String("invite_code_id", invite.InviteCodeID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("通过邀请码加入团队",
		zap.String("team_id", invite.TeamID),
		zap.String("user_id", callerID),
		zap.String("invite_code_id", invite.InviteCodeID),
	)
	return &dto.RedeemInviteCodeResponse{TeamID: invite.TeamID}, nil
}

// ────────────────────── ListByTeam ──────────────────────

func (s *inviteCodeService) ListByTeam(ctx context.Context, teamID, callerID string) ([]dto.InviteCodeResponse, error) {
	if _, err := requireAuthority(ctx, s.repo, teamID, callerID); err != nil {
		return nil, err
	}

	codes, err := s.repo.InviteCode.ListByTeam(ctx, teamID)
	if err != nil {
		s.logger.Error("查询邀请码列表失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	result := make([]dto.InviteCodeResponse, 0, len(codes))
	for i := range codes {
		c := &codes[i]
		result = append(result, dto.InviteCodeResponse{
			ID:        c.InviteCodeID,
			Code:      c.Code,
			TeamID:    c.TeamID,
			CreatedBy: c.CreatedBy,
			ExpiresAt: formatTime(c.ExpiresAt),
			MaxUses:   c.MaxUses,
			Uses:      c.Uses,
			State:     c.State(now),
			CreatedAt: formatTime(c.CreatedAt),
		})
	}
	return result, nil
}
