package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSemesterStart = pkgerrors.New(pkgerrors.ErrValidation, "未配置学期开始日期，无法导出日历")
	ErrExportGenerateFail    = errors.New("生成导出文件失败")
)

// classPeriod 节次起止时间（时:分）
type classPeriod struct {
	Label string
	Start [2]int
	End   [2]int
}

// classPeriods 节次表，行顺序即课表网格的行顺序
var classPeriods = []classPeriod{
	{"0", [2]int{7, 10}, [2]int{8, 0}},
	{"1", [2]int{8, 10}, [2]int{9, 0}},
	{"2", [2]int{9, 10}, [2]int{10, 0}},
	{"3", [2]int{10, 20}, [2]int{11, 10}},
	{"4", [2]int{11, 20}, [2]int{12, 10}},
	{"5", [2]int{12, 20}, [2]int{13, 10}},
	{"6", [2]int{13, 20}, [2]int{14, 10}},
	{"7", [2]int{14, 20}, [2]int{15, 10}},
	{"8", [2]int{15, 30}, [2]int{16, 20}},
	{"9", [2]int{16, 30}, [2]int{17, 20}},
	{"10", [2]int{17, 30}, [2]int{18, 20}},
	{"A", [2]int{18, 25}, [2]int{19, 15}},
	{"B", [2]int{19, 20}, [2]int{20, 10}},
	{"C", [2]int{20, 15}, [2]int{21, 5}},
	{"D", [2]int{21, 10}, [2]int{22, 0}},
}

func findPeriod(label string) (classPeriod, bool) {
	for _, p := range classPeriods {
		if p.Label == label {
			return p, true
		}
	}
	return classPeriod{}, false
}

var weekdayNames = []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// ExportService 课表导出业务接口
//
// 导出内容以 Handler 可直接写入响应的形式返回，附带建议文件名
type ExportService interface {
	// ExportXLSX 导出为 星期 × 节次 的 Excel 网格
	ExportXLSX(ctx context.Context, tableID string) (*bytes.Buffer, string, error)
	// ExportICS 导出为每周重复的 iCalendar 事件
	ExportICS(ctx context.Context, tableID string) ([]byte, string, error)
}

type exportService struct {
	repo    *repository.Repository
	courses CourseService
	cfg     *config.CourseConfig
	now     func() time.Time
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, courses CourseService, cfg *config.CourseConfig, logger *zap.Logger, now func() time.Time) ExportService {
	if now == nil {
		now = time.Now
	}
	return &exportService{repo: repo, courses: courses, cfg: cfg, now: now, logger: logger}
}

// tableCourses 读取课表并按课表顺序展开课程，忽略已不存在的课程
func (s *exportService) tableCourses(ctx context.Context, tableID string) (string, []*dto.CourseResponse, error) {
	table, err := loadReadableTable(ctx, s.repo, s.cfg.Semester, s.now(), tableID)
	if err != nil {
		return "", nil, err
	}
	courses, err := s.courses.FetchByIDs(ctx, table.Courses, true)
	if err != nil {
		return "", nil, err
	}
	kept := courses[:0]
	for _, c := range courses {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return table.Name, kept, nil
}

// ────────────────────── ExportXLSX ──────────────────────
//
// 输出格式：
//   - 第 1 行：课表名称
//   - 第 2 行：节次 | 时间 | 周一 ~ 周日
//   - 数据行：每个节次一行，单元格为 课程名 @ 地点，多门课程换行分隔

func (s *exportService) ExportXLSX(ctx context.Context, tableID string) (*bytes.Buffer, string, error) {
	name, courses, err := s.tableCourses(ctx, tableID)
	if err != nil {
		return nil, "", err
	}

	// "weekday:interval" → 单元格内容
	grid := make(map[string][]string)
	for _, c := range courses {
		for _, sc := range c.Schedules {
			key := fmt.Sprintf("%d:%s", sc.Weekday, sc.Interval)
			text := c.Name
			if sc.Location != "" {
				text += " @ " + sc.Location
			}
			grid[key] = append(grid[key], text)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "课表"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 6)
	f.SetColWidth(sheet, "B", "B", 14)
	f.SetColWidth(sheet, colName(2), colName(1+len(weekdayNames)), 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})

	// 标题行
	f.SetCellValue(sheet, "A1", name)
	f.MergeCell(sheet, "A1", cell(colName(1+len(weekdayNames)), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(sheet, "A2", "节次")
	f.SetCellValue(sheet, "B2", "时间")
	for i, wd := range weekdayNames {
		f.SetCellValue(sheet, cell(colName(2+i), 2), wd)
	}
	f.SetCellStyle(sheet, "A2", cell(colName(1+len(weekdayNames)), 2), headerStyle)

	// 数据行
	for r, p := range classPeriods {
		row := r + 3
		f.SetCellValue(sheet, cell("A", row), p.Label)
		f.SetCellValue(sheet, cell("B", row), fmt.Sprintf("%d:%02d-%d:%02d", p.Start[0], p.Start[1], p.End[0], p.End[1]))
		for wd := 1; wd <= len(weekdayNames); wd++ {
			if items, ok := grid[fmt.Sprintf("%d:%s", wd, p.Label)]; ok {
				f.SetCellValue(sheet, cell(colName(1+wd), row), strings.Join(items, "\n"))
			}
		}
	}
	f.SetCellStyle(sheet, "C3", cell(colName(1+len(weekdayNames)), 2+len(classPeriods)), cellStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("table_id", tableID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("课表_%s.xlsx", name), nil
}

// ────────────────────── ExportICS ──────────────────────
//
// 每个 (课程, 上课时段) 生成一个事件：
// 首次上课为学期第一周对应星期的节次开始时间，按周重复 semester_weeks 次

func (s *exportService) ExportICS(ctx context.Context, tableID string) ([]byte, string, error) {
	if s.cfg.SemesterStart == "" {
		return nil, "", ErrExportNoSemesterStart
	}
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return nil, "", pkgerrors.Newf(pkgerrors.ErrValidation, "无效的时区: %s", s.cfg.Timezone)
	}
	start, err := time.ParseInLocation("2006-01-02", s.cfg.SemesterStart, loc)
	if err != nil {
		return nil, "", pkgerrors.Newf(pkgerrors.ErrValidation, "无效的学期开始日期: %s", s.cfg.SemesterStart)
	}
	// 对齐到该周周一
	start = start.AddDate(0, 0, -((int(start.Weekday()) + 6) % 7))

	name, courses, err := s.tableCourses(ctx, tableID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//NTUCourse Neo//Course Table//ZH")
	cal.SetName(name)
	cal.SetXWRTimezone(s.cfg.Timezone)

	stamp := s.now()
	for _, c := range courses {
		for i, sc := range c.Schedules {
			p, ok := findPeriod(sc.Interval)
			if !ok || sc.Weekday < 1 || sc.Weekday > 7 {
				s.logger.Warn("跳过无法识别的上课时段",
					zap.String("course_id", c.ID),
					zap.Int("weekday", sc.Weekday),
					zap.String("interval", sc.Interval),
				)
				continue
			}
			day := start.AddDate(0, 0, sc.Weekday-1)
			begin := time.Date(day.Year(), day.Month(), day.Day(), p.Start[0], p.Start[1], 0, 0, loc)
			end := time.Date(day.Year(), day.Month(), day.Day(), p.End[0], p.End[1], 0, 0, loc)

			event := cal.AddEvent(fmt.Sprintf("%s-%s-%d@ntucourse-neo", tableID, c.ID, i))
			event.SetDtStampTime(stamp)
			event.SetStartAt(begin)
			event.SetEndAt(end)
			event.SetSummary(c.Name)
			if sc.Location != "" {
				event.SetLocation(sc.Location)
			}
			if c.Teacher != "" {
				event.SetDescription(c.Teacher)
			}
			event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", s.cfg.SemesterWeeks))
		}
	}

	return []byte(cal.Serialize()), fmt.Sprintf("课表_%s.ics", name), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
