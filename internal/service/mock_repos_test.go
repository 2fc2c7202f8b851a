package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"classhub/internal/model"
	"classhub/internal/repository"
	pkgerrors "classhub/pkg/errors"
)

// ── 内存存储 ──
// 所有 Mock Repository 共享同一份数据，互斥锁保证并发测试下的原子性

type memStore struct {
	mu  sync.Mutex
	seq int

	// txMu 串行化事务，回滚时整体恢复快照
	txMu sync.Mutex

	users         map[string]*model.User
	teams         map[string]*model.Team
	members       map[string]*model.TeamMember // key: teamID|userID
	codes         map[string]*model.InviteCode // key: invite_code_id
	announcements map[string]*model.Announcement
	recipients    map[string]*model.AnnouncementRecipient // key: announcementID|userID
	comments      map[string]*model.Comment

	// 故障注入
	publishFailures map[string]int // announcement_id → 剩余失败次数
	codeCreateCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:           make(map[string]*model.User),
		teams:           make(map[string]*model.Team),
		members:         make(map[string]*model.TeamMember),
		codes:           make(map[string]*model.InviteCode),
		announcements:   make(map[string]*model.Announcement),
		recipients:      make(map[string]*model.AnnouncementRecipient),
		comments:        make(map[string]*model.Comment),
		publishFailures: make(map[string]int),
	}
}

// nextID 生成递增 ID，同时作为创建时间的排序依据
func (s *memStore) nextID(prefix string) (string, time.Time) {
	s.seq++
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%s-%d", prefix, s.seq), base.Add(time.Duration(s.seq) * time.Second)
}

func memberKey(teamID, userID string) string { return teamID + "|" + userID }

// newTestRepo 由 Mock 组装 Repository（db 为 nil，事务由 memStore.runTx 模拟）
func newTestRepo() (*repository.Repository, *memStore) {
	s := newMemStore()
	return &repository.Repository{
		TxRunner:     s.runTx,
		User:         &mockUserRepo{s},
		Team:         &mockTeamRepo{s},
		TeamMember:   &mockTeamMemberRepo{s},
		InviteCode:   &mockInviteCodeRepo{s},
		Announcement: &mockAnnouncementRepo{s},
		Recipient:    &mockRecipientRepo{s},
		Comment:      &mockCommentRepo{s},
	}, s
}

// ── 事务模拟 ──

type memSnapshot struct {
	users         map[string]*model.User
	teams         map[string]*model.Team
	members       map[string]*model.TeamMember
	codes         map[string]*model.InviteCode
	announcements map[string]*model.Announcement
	recipients    map[string]*model.AnnouncementRecipient
	comments      map[string]*model.Comment
}

func cloneMap[V any](m map[string]*V) map[string]*V {
	out := make(map[string]*V, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

// runTx 事务内的写入在 fn 返回错误时全部撤销
// 事务外的并发写入不受保护，测试中写操作均经由事务或发生在事务之前
func (s *memStore) runTx(_ context.Context, fn func() error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := memSnapshot{
		users:         cloneMap(s.users),
		teams:         cloneMap(s.teams),
		members:       cloneMap(s.members),
		codes:         cloneMap(s.codes),
		announcements: cloneMap(s.announcements),
		recipients:    cloneMap(s.recipients),
		comments:      cloneMap(s.comments),
	}
	s.mu.Unlock()

	if err := fn(); err != nil {
		s.mu.Lock()
		s.users = snap.users
		s.teams = snap.teams
		s.members = snap.members
		s.codes = snap.codes
		s.announcements = snap.announcements
		s.recipients = snap.recipients
		s.comments = snap.comments
		s.mu.Unlock()
		return err
	}
	return nil
}

// memberCount 团队当前成员数
func (s *memStore) memberCount(teamID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, tm := range s.members {
		if tm.TeamID == teamID {
			n++
		}
	}
	return n
}

// ── 测试数据辅助 ──

func (s *memStore) addUser(id, name string, role model.Role) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{UserID: id, Name: name, Email: id + "@school.test", Role: role}
	s.users[id] = u
	return u
}

func (s *memStore) addTeam(id, ownerID string) *model.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &model.Team{TeamID: id, Name: "班级-" + id, OwnerID: ownerID}
	s.teams[id] = t
	return t
}

func (s *memStore) addMember(teamID, userID string, role model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey(teamID, userID)] = &model.TeamMember{
		TeamMemberID: "tm-" + teamID + "-" + userID,
		TeamID:       teamID,
		UserID:       userID,
		Role:         role,
	}
}

func (s *memStore) addCode(c *model.InviteCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.codes[c.InviteCodeID] = &cp
}

func (s *memStore) addAnnouncement(a *model.Announcement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Version == 0 {
		a.Version = 1
	}
	cp := *a
	s.announcements[a.AnnouncementID] = &cp
}

func (s *memStore) code(id string) model.InviteCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.codes[id]
}

func (s *memStore) announcement(id string) model.Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.announcements[id]
}

func (s *memStore) isMember(teamID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[memberKey(teamID, userID)]
	return ok
}

func (s *memStore) recipientCount(announcementID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recipients {
		if r.AnnouncementID == announcementID {
			n++
		}
	}
	return n
}

func (s *memStore) inviteCodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID, user.CreatedAt = m.s.nextID("user")
	}
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock TeamRepository ──

type mockTeamRepo struct{ s *memStore }

func (m *mockTeamRepo) Create(_ context.Context, team *model.Team) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if team.TeamID == "" {
		team.TeamID, team.CreatedAt = m.s.nextID("team")
	}
	cp := *team
	m.s.teams[team.TeamID] = &cp
	return nil
}

func (m *mockTeamRepo) GetByID(_ context.Context, id string) (*model.Team, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t, ok := m.s.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock TeamMemberRepository ──

type mockTeamMemberRepo struct{ s *memStore }

func (m *mockTeamMemberRepo) Create(_ context.Context, member *model.TeamMember) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := memberKey(member.TeamID, member.UserID)
	if _, ok := m.s.members[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	if member.TeamMemberID == "" {
		member.TeamMemberID, member.CreatedAt = m.s.nextID("tm")
	}
	cp := *member
	m.s.members[key] = &cp
	return nil
}

func (m *mockTeamMemberRepo) Get(_ context.Context, teamID, userID string) (*model.TeamMember, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if tm, ok := m.s.members[memberKey(teamID, userID)]; ok {
		cp := *tm
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamMemberRepo) ListByTeam(_ context.Context, teamID string) ([]model.TeamMember, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.TeamMember
	for _, tm := range m.s.members {
		if tm.TeamID != teamID {
			continue
		}
		cp := *tm
		if u, ok := m.s.users[tm.UserID]; ok {
			uc := *u
			cp.User = &uc
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockTeamMemberRepo) ListByUser(_ context.Context, userID string) ([]model.TeamMember, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.TeamMember
	for _, tm := range m.s.members {
		if tm.UserID != userID {
			continue
		}
		cp := *tm
		if t, ok := m.s.teams[tm.TeamID]; ok {
			tc := *t
			cp.Team = &tc
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TeamID < result[j].TeamID })
	return result, nil
}

func (m *mockTeamMemberRepo) Delete(_ context.Context, teamID, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.members, memberKey(teamID, userID))
	return nil
}

// ── Mock InviteCodeRepository ──

type mockInviteCodeRepo struct{ s *memStore }

func (m *mockInviteCodeRepo) Create(_ context.Context, code *model.InviteCode) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.codeCreateCalls++
	for _, c := range m.s.codes {
		if c.Code == code.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if code.InviteCodeID == "" {
		code.InviteCodeID, code.CreatedAt = m.s.nextID("ic")
	}
	cp := *code
	m.s.codes[code.InviteCodeID] = &cp
	return nil
}

func (m *mockInviteCodeRepo) GetByCode(_ context.Context, code string) (*model.InviteCode, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInviteCodeRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.codes {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInviteCodeRepo) ListByTeam(_ context.Context, teamID string) ([]model.InviteCode, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.InviteCode
	for _, c := range m.s.codes {
		if c.TeamID == teamID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockInviteCodeRepo) IncrementUses(_ context.Context, inviteCodeID string, now time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.codes[inviteCodeID]
	if !ok || c.Uses >= c.MaxUses || !now.Before(c.ExpiresAt) {
		return false, nil
	}
	c.Uses++
	return true, nil
}

// ── Mock AnnouncementRepository ──

type mockAnnouncementRepo struct{ s *memStore }

func (m *mockAnnouncementRepo) withSender(a *model.Announcement) model.Announcement {
	cp := *a
	if u, ok := m.s.users[a.SenderID]; ok {
		uc := *u
		cp.Sender = &uc
	}
	return cp
}

func (m *mockAnnouncementRepo) Create(_ context.Context, a *model.Announcement) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a.AnnouncementID == "" {
		a.AnnouncementID, a.CreatedAt = m.s.nextID("ann")
	}
	a.Version = 1
	cp := *a
	m.s.announcements[a.AnnouncementID] = &cp
	return nil
}

func (m *mockAnnouncementRepo) GetByID(_ context.Context, id string) (*model.Announcement, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.announcements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.withSender(a)
	return &cp, nil
}

func (m *mockAnnouncementRepo) List(_ context.Context, filters *repository.AnnouncementListFilters, offset, limit int) ([]model.Announcement, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.Announcement
	for _, a := range m.s.announcements {
		if filters != nil && filters.TeamID != "" && a.TeamID != filters.TeamID {
			continue
		}
		if filters != nil && len(filters.Statuses) > 0 && !containsStatus(filters.Statuses, a.Status) {
			continue
		}
		all = append(all, m.withSender(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AnnouncementID < all[j].AnnouncementID })

	total := int64(len(all))
	if offset >= len(all) {
		return []model.Announcement{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func containsStatus(list []model.AnnouncementStatus, st model.AnnouncementStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

func (m *mockAnnouncementRepo) Update(_ context.Context, a *model.Announcement) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.announcements[a.AnnouncementID]
	if !ok || stored.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	cp := *a
	cp.Sender = nil
	m.s.announcements[a.AnnouncementID] = &cp
	return nil
}

func (m *mockAnnouncementRepo) ListDue(_ context.Context, now time.Time) ([]model.Announcement, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Announcement
	for _, a := range m.s.announcements {
		if a.Status == model.AnnouncementScheduled && a.ScheduledDate != nil && !a.ScheduledDate.After(now) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduledDate.Before(*result[j].ScheduledDate) })
	return result, nil
}

var errInjectedPublish = errors.New("模拟数据库写入失败")

func (m *mockAnnouncementRepo) PublishScheduled(_ context.Context, id string, now time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if n := m.s.publishFailures[id]; n > 0 {
		m.s.publishFailures[id] = n - 1
		return false, errInjectedPublish
	}
	a, ok := m.s.announcements[id]
	if !ok || a.Status != model.AnnouncementScheduled || a.ScheduledDate == nil || a.ScheduledDate.After(now) {
		return false, nil
	}
	a.Status = model.AnnouncementPublished
	publishedAt := now
	a.PublishedAt = &publishedAt
	a.Version++
	m.s.materializeLocked(id, a.TeamID)
	return true, nil
}

// ── Mock RecipientRepository ──

type mockRecipientRepo struct{ s *memStore }

func (s *memStore) materializeLocked(announcementID, teamID string) int64 {
	var n int64
	for _, tm := range s.members {
		if tm.TeamID != teamID {
			continue
		}
		key := memberKey(announcementID, tm.UserID)
		if _, ok := s.recipients[key]; ok {
			continue
		}
		s.recipients[key] = &model.AnnouncementRecipient{AnnouncementID: announcementID, UserID: tm.UserID}
		n++
	}
	return n
}

func (m *mockRecipientRepo) MaterializeForTeam(_ context.Context, announcementID, teamID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.materializeLocked(announcementID, teamID), nil
}

func (m *mockRecipientRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.AnnouncementRecipient, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.AnnouncementRecipient
	for _, r := range m.s.recipients {
		if r.UserID != userID {
			continue
		}
		cp := *r
		if a, ok := m.s.announcements[r.AnnouncementID]; ok {
			ac := *a
			cp.Announcement = &ac
		}
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AnnouncementID < all[j].AnnouncementID })

	total := int64(len(all))
	if offset >= len(all) {
		return []model.AnnouncementRecipient{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockRecipientRepo) MarkRead(_ context.Context, announcementID, userID string, now time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.recipients[memberKey(announcementID, userID)]
	if !ok {
		return false, nil
	}
	if r.ReadAt == nil {
		t := now
		r.ReadAt = &t
	}
	return true, nil
}

// ── Mock CommentRepository ──

type mockCommentRepo struct{ s *memStore }

func (m *mockCommentRepo) Create(_ context.Context, c *model.Comment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c.CommentID == "" {
		c.CommentID, c.CreatedAt = m.s.nextID("cm")
	}
	cp := *c
	m.s.comments[c.CommentID] = &cp
	return nil
}

func (m *mockCommentRepo) GetByID(_ context.Context, id string) (*model.Comment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.comments[id]
	if !ok || c.DeletedBy != nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCommentRepo) ListByAnnouncement(_ context.Context, announcementID string, offset, limit int) ([]model.Comment, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.Comment
	for _, c := range m.s.comments {
		if c.AnnouncementID == announcementID && c.DeletedBy == nil {
			all = append(all, *c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return []model.Comment{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockCommentRepo) Delete(_ context.Context, id, deletedBy string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c, ok := m.s.comments[id]; ok {
		c.DeletedBy = &deletedBy
	}
	return nil
}
