package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"classhub/internal/dto"
	"classhub/internal/model"
	"classhub/internal/repository"
)

// ── 团队模块业务错误 ──

var (
	ErrTeamNotFound      = errors.New("团队不存在")
	ErrNotTeamMember     = errors.New("不是该团队成员")
	ErrNotTeamAuthority  = errors.New("需要团队教师或管理员权限")
	ErrMemberNotFound    = errors.New("成员不存在")
	ErrCannotRemoveSelf  = errors.New("不能移除自己，请使用退出团队")
	ErrOwnerCannotLeave  = errors.New("团队创建者不能退出团队")
	ErrCannotRemoveOwner = errors.New("不能移除团队创建者")
)

// TeamService 团队业务接口
type TeamService interface {
	Create(ctx context.Context, req *dto.CreateTeamRequest, callerID string) (*dto.TeamResponse, error)
	ListMine(ctx context.Context, callerID string) ([]dto.TeamResponse, error)
	Get(ctx context.Context, teamID, callerID string) (*dto.TeamResponse, error)
	ListMembers(ctx context.Context, teamID, callerID string) ([]dto.TeamMemberResponse, error)
	RemoveMember(ctx context.Context, teamID, userID, callerID string) error
	Leave(ctx context.Context, teamID, callerID string) error
}

type teamService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTeamService 创建 TeamService 实例
func NewTeamService(repo *repository.Repository, logger *zap.Logger) TeamService {
	return &teamService{repo: repo, logger: logger}
}

// ────────────────────── 成员身份校验 ──────────────────────

// requireMember 调用者必须是团队成员
func requireMember(ctx context.Context, repo *repository.Repository, teamID, userID string) (*model.TeamMember, error) {
	member, err := repo.TeamMember.Get(ctx, teamID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotTeamMember
		}
		return nil, err
	}
	return member, nil
}

// requireAuthority 调用者必须以 teacher / admin / staff 身份属于该团队
func requireAuthority(ctx context.Context, repo *repository.Repository, teamID, userID string) (*model.TeamMember, error) {
	member, err := requireMember(ctx, repo, teamID, userID)
	if err != nil {
		if errors.Is(err, ErrNotTeamMember) {
			return nil, ErrNotTeamAuthority
		}
		return nil, err
	}
	if !member.Role.IsAuthority() {
		return nil, ErrNotTeamAuthority
	}
	return member, nil
}

// ────────────────────── Create ──────────────────────

func (s *teamService) Create(ctx context.Context, req *dto.CreateTeamRequest, callerID string) (*dto.TeamResponse, error) {
	name, err := trimRequired(req.Name)
	if err != nil {
		return nil, err
	}

	team := &model.Team{
		Name:        name,
		Description: req.Description,
		OwnerID:     callerID,
	}
	team.CreatedBy = &callerID
	team.UpdatedBy = &callerID

	// 创建者以 teacher 身份加入，与团队同事务
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Team.Create(ctx, team); err != nil {
			return err
		}
		return txRepo.TeamMember.Create(ctx, &model.TeamMember{
			TeamID:   team.TeamID,
			UserID:   callerID,
			Role:     model.RoleTeacher,
			JoinedAt: time.Now(),
		})
	})
	if err != nil {
		s.logger.Error("创建团队失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("团队已创建", zap.String("team_id", team.TeamID), zap.String("owner_id", callerID))

	resp := toTeamResponse(team, model.RoleTeacher)
	return &resp, nil
}

// ────────────────────── ListMine ──────────────────────

func (s *teamService) ListMine(ctx context.Context, callerID string) ([]dto.TeamResponse, error) {
	memberships, err := s.repo.TeamMember.ListByUser(ctx, callerID)
	if err != nil {
		s.logger.Error("查询我的团队失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.TeamResponse, 0, len(memberships))
	for i := range memberships {
		if memberships[i].Team == nil {
			continue
		}
		result = append(result, toTeamResponse(memberships[i].Team, memberships[i].Role))
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *teamService) Get(ctx context.Context, teamID, callerID string) (*dto.TeamResponse, error) {
	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTeamNotFound
		}
		s.logger.Error("查询团队失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}

	member, err := requireMember(ctx, s.repo, teamID, callerID)
	if err != nil {
		return nil, err
	}

	resp := toTeamResponse(team, member.Role)
	return &resp, nil
}

// ────────────────────── ListMembers ──────────────────────

func (s *teamService) ListMembers(ctx context.Context, teamID, callerID string) ([]dto.TeamMemberResponse, error) {
	if _, err := requireMember(ctx, s.repo, teamID, callerID); err != nil {
		return nil, err
	}

	members, err := s.repo.TeamMember.ListByTeam(ctx, teamID)
	if err != nil {
		s.logger.Error("查询团队成员失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.TeamMemberResponse, 0, len(members))
	for i := range members {
		result = append(result, toTeamMemberResponse(&members[i]))
	}
	return result, nil
}

// ────────────────────── RemoveMember ──────────────────────

func (s *teamService) RemoveMember(ctx context.Context, teamID, userID, callerID string) error {
	if userID == callerID {
		return ErrCannotRemoveSelf
	}
	if _, err := requireAuthority(ctx, s.repo, teamID, callerID); err != nil {
		return err
	}

	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrTeamNotFound
		}
		return err
	}
	if team.OwnerID == userID {
		return ErrCannotRemoveOwner
	}

	if _, err := s.repo.TeamMember.Get(ctx, teamID, userID); err != nil {
		if repository.IsNotFound(err) {
			return ErrMemberNotFound
		}
		return err
	}

	if err := s.repo.TeamMember.Delete(ctx, teamID, userID); err != nil {
		s.logger.Error("移除团队成员失败", zap.String("team_id", teamID), zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.logger.Info("团队成员已移除",
		zap.String("team_id", teamID),
		zap.String("user_id", userID),
		zap.String("operator", callerID),
	)
	return nil
}

// ────────────────────── Leave ──────────────────────

func (s *teamService) Leave(ctx context.Context, teamID, callerID string) error {
	if _, err := requireMember(ctx, s.repo, teamID, callerID); err != nil {
		return err
	}

	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrTeamNotFound
		}
		return err
	}
	if team.OwnerID == callerID {
		return ErrOwnerCannotLeave
	}

	if err := s.repo.TeamMember.Delete(ctx, teamID, callerID); err != nil {
		s.logger.Error("退出团队失败", zap.String("team_id", teamID), zap.Error(err))
		return err
	}
	return nil
}

// ── 辅助函数 ──

func toTeamResponse(team *model.Team, myRole model.Role) dto.TeamResponse {
	return dto.TeamResponse{
		ID:          team.TeamID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		MyRole:      string(myRole),
		CreatedAt:   formatTime(team.CreatedAt),
	}
}

func toTeamMemberResponse(m *model.TeamMember) dto.TeamMemberResponse {
	resp := dto.TeamMemberResponse{
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: formatTime(m.JoinedAt),
	}
	if m.User != nil {
		resp.Name = m.User.Name
		resp.Email = m.User.Email
	}
	return resp
}
