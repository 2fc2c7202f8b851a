package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"classhub/internal/dto"
	"classhub/internal/model"
)

func setupTestCommentService() (CommentService, *memStore) {
	repo, store := newTestRepo()
	store.addUser("teacher-1", "王老师", model.RoleTeacher)
	store.addUser("student-1", "小明", model.RoleStudent)
	store.addUser("student-2", "小红", model.RoleStudent)
	store.addTeam("team-1", "teacher-1")
	store.addMember("team-1", "teacher-1", model.RoleTeacher)
	store.addMember("team-1", "student-1", model.RoleStudent)
	store.addMember("team-1", "student-2", model.RoleStudent)
	seedAnnouncement(store, "pub", model.AnnouncementPublished, nil)
	seedAnnouncement(store, "draft", model.AnnouncementDraft, nil)
	return NewCommentService(repo, zap.NewNop()), store
}

func TestCreateComment(t *testing.T) {
	svc, _ := setupTestCommentService()

	c, err := svc.Create(context.Background(), "pub", &dto.CreateCommentRequest{Content: " 收到 "}, "student-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if c.Content != "收到" || c.AuthorID != "student-1" {
		t.Errorf("评论字段不符: %+v", c)
	}

	list, total, err := svc.List(context.Background(), "pub", &dto.PaginationRequest{}, "student-2")
	if err != nil || total != 1 || len(list) != 1 {
		t.Errorf("期望 1 条评论，实际 total=%d err=%v", total, err)
	}
}

func TestCreateComment_Rejections(t *testing.T) {
	svc, store := setupTestCommentService()
	store.addUser("outsider", "路人", model.RoleStudent)

	if _, err := svc.Create(context.Background(), "draft", &dto.CreateCommentRequest{Content: "x"}, "teacher-1"); !errors.Is(err, ErrCommentNotAllowed) {
		t.Errorf("未发布公告应返回 ErrCommentNotAllowed，实际: %v", err)
	}
	if _, err := svc.Create(context.Background(), "draft", &dto.CreateCommentRequest{Content: "x"}, "student-1"); !errors.Is(err, ErrAnnouncementNotFound) {
		t.Errorf("学生看不到草稿，应返回 ErrAnnouncementNotFound，实际: %v", err)
	}
	if _, err := svc.Create(context.Background(), "pub", &dto.CreateCommentRequest{Content: "x"}, "outsider"); !errors.Is(err, ErrNotTeamMember) {
		t.Errorf("非成员应返回 ErrNotTeamMember，实际: %v", err)
	}
}

func TestCreateComment_BlankContent(t *testing.T) {
	svc, _ := setupTestCommentService()

	if _, err := svc.Create(context.Background(), "pub", &dto.CreateCommentRequest{Content: "   "}, "student-1"); !errors.Is(err, ErrBlankField) {
		t.Errorf("空白评论应返回 ErrBlankField，实际: %v", err)
	}
	list, total, err := svc.List(context.Background(), "pub", &dto.PaginationRequest{}, "student-1")
	if err != nil || total != 0 || len(list) != 0 {
		t.Errorf("空白评论不应写入，实际 total=%d err=%v", total, err)
	}
}

func TestDeleteComment_Permissions(t *testing.T) {
	svc, _ := setupTestCommentService()
	ctx := context.Background()

	c, err := svc.Create(ctx, "pub", &dto.CreateCommentRequest{Content: "第一条"}, "student-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	if err := svc.Delete(ctx, c.ID, "student-2"); !errors.Is(err, ErrCommentForbidden) {
		t.Errorf("其他学生删除应返回 ErrCommentForbidden，实际: %v", err)
	}
	if err := svc.Delete(ctx, c.ID, "teacher-1"); err != nil {
		t.Fatalf("教师删除应成功: %v", err)
	}
	if err := svc.Delete(ctx, c.ID, "student-1"); !errors.Is(err, ErrCommentNotFound) {
		t.Errorf("已删除评论应返回 ErrCommentNotFound，实际: %v", err)
	}

	_, total, _ := svc.List(ctx, "pub", &dto.PaginationRequest{}, "student-1")
	if total != 0 {
		t.Errorf("软删除后列表应为空，实际 %d", total)
	}
}
