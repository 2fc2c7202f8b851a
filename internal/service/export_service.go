package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"classhub/internal/model"
	"classhub/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// calendarExportLimit 日历导出的公告数量上限
const calendarExportLimit = 500

// ExportService 导出业务接口
//
// 导出以字节流返回，由 Handler 层设置 Content-Disposition 后写入 Response
type ExportService interface {
	// ExportRoster 导出团队成员名册为 Excel，仅团队管理角色可用
	ExportRoster(ctx context.Context, teamID, callerID string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出团队公告为 iCalendar，学生仅含已发布公告
	ExportCalendar(ctx context.Context, teamID, callerID string) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRoster 导出成员名册 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：团队名称（合并单元格）
//   - 第 2 行表头：序号 | 姓名 | 邮箱 | 角色 | 加入时间
//   - 之后每行一名成员，按加入时间排序

func (s *exportService) ExportRoster(ctx context.Context, teamID, callerID string) (*bytes.Buffer, string, error) {
	if _, err := requireAuthority(ctx, s.repo, teamID, callerID); err != nil {
		return nil, "", err
	}

	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", ErrTeamNotFound
		}
		return nil, "", err
	}

	members, err := s.repo.TeamMember.ListByTeam(ctx, teamID)
	if err != nil {
		s.logger.Error("查询团队成员失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "成员名册"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "C", 30)
	f.SetColWidth(sheetName, "D", "D", 10)
	f.SetColWidth(sheetName, "E", "E", 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 成员名册", team.Name))
	f.MergeCell(sheetName, "A1", "E1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	headers := []string{"序号", "姓名", "邮箱", "角色", "加入时间"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "E2", headerStyle)

	row := 3
	for i := range members {
		m := &members[i]
		name, email := "-", "-"
		if m.User != nil {
			name = m.User.Name
			email = m.User.Email
		}
		f.SetCellValue(sheetName, cell("A", row), i+1)
		f.SetCellValue(sheetName, cell("B", row), name)
		f.SetCellValue(sheetName, cell("C", row), email)
		f.SetCellValue(sheetName, cell("D", row), string(m.Role))
		f.SetCellValue(sheetName, cell("E", row), m.JoinedAt.Format("2006-01-02 15:04"))
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("成员名册_%s.xlsx", team.Name)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 导出公告日历 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每条公告一个 VEVENT：已发布公告取 published_at，待发布公告取 scheduled_date

func (s *exportService) ExportCalendar(ctx context.Context, teamID, callerID string) ([]byte, string, error) {
	member, err := requireMember(ctx, s.repo, teamID, callerID)
	if err != nil {
		return nil, "", err
	}

	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", ErrTeamNotFound
		}
		return nil, "", err
	}

	statuses := []model.AnnouncementStatus{model.AnnouncementPublished}
	if member.Role.IsAuthority() {
		statuses = append(statuses, model.AnnouncementScheduled)
	}

	list, _, err := s.repo.Announcement.List(ctx, &repository.AnnouncementListFilters{
		TeamID:   teamID,
		Statuses: statuses,
	}, 0, calendarExportLimit)
	if err != nil {
		s.logger.Error("查询公告失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//classhub//announcements//ZH")
	cal.SetXWRCalName(team.Name)

	for i := range list {
		a := &list[i]
		at := announcementEventTime(a)
		if at == nil {
			continue
		}

		evt := cal.AddEvent(a.AnnouncementID + "@classhub")
		evt.SetDtStampTime(a.UpdatedAt.UTC())
		evt.SetStartAt(at.UTC())
		evt.SetEndAt(at.UTC().Add(30 * time.Minute))
		evt.SetSummary(fmt.Sprintf("[%s] %s", a.Priority, a.Title))
		evt.SetDescription(a.Content)
		if a.Status == model.AnnouncementScheduled {
			evt.SetProperty(ics.ComponentPropertyStatus, "TENTATIVE")
		} else {
			evt.SetProperty(ics.ComponentPropertyStatus, "CONFIRMED")
		}
	}

	filename := fmt.Sprintf("公告日历_%s.ics", team.Name)
	return []byte(cal.Serialize()), filename, nil
}

func announcementEventTime(a *model.Announcement) *time.Time {
	if a.Status == model.AnnouncementPublished && a.PublishedAt != nil {
		return a.PublishedAt
	}
	return a.ScheduledDate
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
