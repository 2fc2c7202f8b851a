package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"classhub/internal/dto"
	"classhub/internal/model"
	"classhub/internal/repository"
	pkgerrors "classhub/pkg/errors"
)

// ── 公告模块业务错误 ──

var (
	ErrAnnouncementNotFound    = errors.New("公告不存在")
	ErrInvalidTransition       = errors.New("公告当前状态不允许该操作")
	ErrAnnouncementNotEditable = errors.New("仅草稿或待发布公告可修改")
	ErrInvalidScheduledDate    = errors.New("定时发布时间格式无效，应为 RFC 3339")
	ErrScheduleInPast          = errors.New("定时发布时间必须晚于当前时间")
	ErrPublishConflict         = errors.New("不能同时立即发布与定时发布")
)

// AnnouncementService 公告业务接口
type AnnouncementService interface {
	Create(ctx context.Context, req *dto.CreateAnnouncementRequest, callerID string) (*dto.AnnouncementResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateAnnouncementRequest, callerID string) (*dto.AnnouncementResponse, error)
	Get(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error)
	ListByTeam(ctx context.Context, teamID string, req *dto.AnnouncementListRequest, callerID string) ([]dto.AnnouncementResponse, int64, error)

	// ── 状态迁移 ──
	Schedule(ctx context.Context, id string, req *dto.ScheduleAnnouncementRequest, callerID string) (*dto.AnnouncementResponse, error)
	PublishNow(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error)
	Cancel(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error)
	RevertToDraft(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error)

	// ── 收件箱 ──
	ListInbox(ctx context.Context, callerID string, req *dto.PaginationRequest) ([]dto.InboxItemResponse, int64, error)
	MarkRead(ctx context.Context, id, callerID string) error

	// PublishDue 将所有到期的 SCHEDULED 公告迁移为 PUBLISHED；幂等，单条失败不影响其余
	PublishDue(ctx context.Context) (*dto.PublishDueResponse, error)
}

type announcementService struct {
	repo        *repository.Repository
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

// NewAnnouncementService 创建 AnnouncementService 实例
// concurrency 为 PublishDue 单批次内的并发更新数
func NewAnnouncementService(repo *repository.Repository, concurrency int, logger *zap.Logger) AnnouncementService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &announcementService{
		repo:        repo,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *announcementService) Create(ctx context.Context, req *dto.CreateAnnouncementRequest, callerID string) (*dto.AnnouncementResponse, error) {
	if req.PublishNow && req.ScheduledDate != nil {
		return nil, ErrPublishConflict
	}
	title, err := trimRequired(req.Title)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrBlankField
	}
	if _, err := requireAuthority(ctx, s.repo, req.TeamID, callerID); err != nil {
		return nil, err
	}

	priority := model.AnnouncementPriority(req.Priority)
	if priority == "" {
		priority = model.PriorityNormal
	}

	a := &model.Announcement{
		TeamID:   req.TeamID,
		SenderID: callerID,
		Title:    title,
		Content:  req.Content,
		Priority: priority,
		Status:   model.AnnouncementDraft,
	}
	a.CreatedBy = &callerID
	a.UpdatedBy = &callerID

	now := s.now()
	switch {
	case req.ScheduledDate != nil:
		at, err := s.parseFutureDate(*req.ScheduledDate, now)
		if err != nil {
			return nil, err
		}
		a.Status = model.AnnouncementScheduled
		a.ScheduledDate = &at
	case req.PublishNow:
		a.Status = model.AnnouncementPublished
		a.PublishedAt = &now
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Announcement.Create(ctx, a); err != nil {
			return err
		}
		if a.Status == model.AnnouncementPublished {
			_, err := txRepo.Recipient.MaterializeForTeam(ctx, a.AnnouncementID, a.TeamID)
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("创建公告失败", zap.String("team_id", req.TeamID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("公告已创建",
		zap.String("announcement_id", a.AnnouncementID),
		zap.String("status", string(a.Status)),
	)
	return toAnnouncementResponse(a), nil
}

// ────────────────────── Update ──────────────────────

func (s *announcementService) Update(ctx context.Context, id string, req *dto.UpdateAnnouncementRequest, callerID string) (*dto.AnnouncementResponse, error) {
	a, err := s.loadForAuthority(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if !a.Status.IsEditable() {
		return nil, ErrAnnouncementNotEditable
	}

	if req.Title != nil {
		title, err := trimRequired(*req.Title)
		if err != nil {
			return nil, err
		}
		a.Title = title
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, ErrBlankField
		}
		a.Content = *req.Content
	}
	if req.Priority != nil {
		a.Priority = model.AnnouncementPriority(*req.Priority)
	}
	a.Version = req.Version
	a.UpdatedBy = &callerID

	if err := s.repo.Announcement.Update(ctx, a); err != nil {
		if pkgerrors.IsConflict(err) {
			s.logger.Info("更新公告版本冲突", zap.String("announcement_id", id), zap.Int("version", req.Version))
		} else {
			s.logger.Error("更新公告失败", zap.String("announcement_id", id), zap.Error(err))
		}
		return nil, err
	}
	return toAnnouncementResponse(a), nil
}

// ────────────────────── Get / List ──────────────────────

// Get 团队成员可见已发布公告；管理角色可见全部状态
func (s *announcementService) Get(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	member, err := requireMember(ctx, s.repo, a.TeamID, callerID)
	if err != nil {
		return nil, err
	}
	if !member.Role.IsAuthority() && a.Status != model.AnnouncementPublished {
		return nil, ErrAnnouncementNotFound
	}
	return toAnnouncementResponse(a), nil
}

func (s *announcementService) ListByTeam(ctx context.Context, teamID string, req *dto.AnnouncementListRequest, callerID string) ([]dto.AnnouncementResponse, int64, error) {
	member, err := requireMember(ctx, s.repo, teamID, callerID)
	if err != nil {
		return nil, 0, err
	}

	filters := &repository.AnnouncementListFilters{TeamID: teamID}
	switch {
	case !member.Role.IsAuthority():
		if req.Status != "" && req.Status != string(model.AnnouncementPublished) {
			return []dto.AnnouncementResponse{}, 0, nil
		}
		filters.Statuses = []model.AnnouncementStatus{model.AnnouncementPublished}
	case req.Status != "":
		filters.Statuses = []model.AnnouncementStatus{model.AnnouncementStatus(req.Status)}
	}

	list, total, err := s.repo.Announcement.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询公告列表失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AnnouncementResponse, 0, len(list))
	for i := range list {
		result = append(result, *toAnnouncementResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── 状态迁移 ──────────────────────

func (s *announcementService) Schedule(ctx context.Context, id string, req *dto.ScheduleAnnouncementRequest, callerID string) (*dto.AnnouncementResponse, error) {
	at, err := s.parseFutureDate(req.ScheduledDate, s.now())
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, callerID, model.AnnouncementScheduled, func(a *model.Announcement) {
		a.ScheduledDate = &at
	})
}

func (s *announcementService) PublishNow(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error) {
	return s.transition(ctx, id, callerID, model.AnnouncementPublished, func(a *model.Announcement) {
		now := s.now()
		a.PublishedAt = &now
	})
}

func (s *announcementService) Cancel(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error) {
	return s.transition(ctx, id, callerID, model.AnnouncementCancelled, nil)
}

func (s *announcementService) RevertToDraft(ctx context.Context, id, callerID string) (*dto.AnnouncementResponse, error) {
	return s.transition(ctx, id, callerID, model.AnnouncementDraft, func(a *model.Announcement) {
		a.ScheduledDate = nil
	})
}

// transition 经状态机校验后执行迁移；迁移到 PUBLISHED 时同事务生成接收人
func (s *announcementService) transition(
	ctx context.Context,
	id, callerID string,
	to model.AnnouncementStatus,
	mutate func(a *model.Announcement),
) (*dto.AnnouncementResponse, error) {
	a, err := s.loadForAuthority(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(to) {
		return nil, ErrInvalidTransition
	}

	from := a.Status
	if mutate != nil {
		mutate(a)
	}
	a.Status = to
	a.UpdatedBy = &callerID

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Announcement.Update(ctx, a); err != nil {
			return err
		}
		if to == model.AnnouncementPublished {
			_, err := txRepo.Recipient.MaterializeForTeam(ctx, a.AnnouncementID, a.TeamID)
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("公告状态迁移失败",
			zap.String("announcement_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("公告状态已迁移",
		zap.String("announcement_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("operator", callerID),
	)
	return toAnnouncementResponse(a), nil
}

// ────────────────────── 收件箱 ──────────────────────

func (s *announcementService) ListInbox(ctx context.Context, callerID string, req *dto.PaginationRequest) ([]dto.InboxItemResponse, int64, error) {
	list, total, err := s.repo.Recipient.ListByUser(ctx, callerID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询收件箱失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.InboxItemResponse, 0, len(list))
	for i := range list {
		r := &list[i]
		if r.Announcement == nil {
			continue
		}
		result = append(result, dto.InboxItemResponse{
			Announcement: *toAnnouncementResponse(r.Announcement),
			Read:         r.ReadAt != nil,
			ReadAt:       formatTimePtr(r.ReadAt),
		})
	}
	return result, total, nil
}

func (s *announcementService) MarkRead(ctx context.Context, id, callerID string) error {
	ok, err := s.repo.Recipient.MarkRead(ctx, id, callerID, s.now())
	if err != nil {
		s.logger.Error("标记已读失败", zap.String("announcement_id", id), zap.Error(err))
		return err
	}
	if !ok {
		return ErrAnnouncementNotFound
	}
	return nil
}

// ────────────────────── PublishDue ──────────────────────

// PublishDue 每条到期公告独立执行条件更新（WHERE status = 'SCHEDULED'），
// 失败记录日志后继续；未完成的公告保持 SCHEDULED，下次调用时自动补发
func (s *announcementService) PublishDue(ctx context.Context) (*dto.PublishDueResponse, error) {
	now := s.now()

	due, err := s.repo.Announcement.ListDue(ctx, now)
	if err != nil {
		s.logger.Error("查询到期公告失败", zap.Error(err))
		return nil, err
	}

	var (
		mu  sync.Mutex
		ids = make([]string, 0, len(due))
		g   errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for i := range due {
		id := due[i].AnnouncementID
		g.Go(func() error {
			published, err := s.repo.Announcement.PublishScheduled(ctx, id, now)
			if err != nil {
				s.logger.Error("定时发布公告失败", zap.String("announcement_id", id), zap.Error(err))
				return nil
			}
			if !published {
				return nil
			}
			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(ids)

	if len(due) > 0 {
		s.logger.Info("定时发布批次完成",
			zap.Int("due", len(due)),
			zap.Int("published", len(ids)),
		)
	}

	return &dto.PublishDueResponse{
		PublishedCount: len(ids),
		PublishedIDs:   ids,
	}, nil
}

// ── 辅助函数 ──

func (s *announcementService) load(ctx context.Context, id string) (*model.Announcement, error) {
	a, err := s.repo.Announcement.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAnnouncementNotFound
		}
		s.logger.Error("查询公告失败", zap.String("announcement_id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

func (s *announcementService) loadForAuthority(ctx context.Context, id, callerID string) (*model.Announcement, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := requireAuthority(ctx, s.repo, a.TeamID, callerID); err != nil {
		return nil, err
	}
	return a, nil
}

// parseFutureDate 解析 RFC 3339 时间并要求晚于 now
func (s *announcementService) parseFutureDate(raw string, now time.Time) (time.Time, error) {
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidScheduledDate
	}
	if !at.After(now) {
		return time.Time{}, ErrScheduleInPast
	}
	return at.UTC(), nil
}

func toAnnouncementResponse(a *model.Announcement) *dto.AnnouncementResponse {
	resp := &dto.AnnouncementResponse{
		ID:            a.AnnouncementID,
		TeamID:        a.TeamID,
		SenderID:      a.SenderID,
		Title:         a.Title,
		Content:       a.Content,
		Priority:      string(a.Priority),
		Status:        string(a.Status),
		ScheduledDate: formatTimePtr(a.ScheduledDate),
		PublishedAt:   formatTimePtr(a.PublishedAt),
		Version:       a.Version,
		CreatedAt:     formatTime(a.CreatedAt),
	}
	if a.Sender != nil {
		resp.SenderName = a.Sender.Name
	}
	return resp
}
