package dto

import "github.com/NTUCourse-Neo/ncn-backend-v2/internal/query"

// ── 课程模块 DTO ──

// CourseSearchRequest 课程搜索请求
type CourseSearchRequest struct {
	Keyword   string       `json:"keyword"    binding:"omitempty,max=100"`
	Fields    []string     `json:"fields"     binding:"required"`
	Filter    query.Filter `json:"filter"`
	BatchSize int          `json:"batch_size" binding:"omitempty,min=1,max=500"`
	Offset    int          `json:"offset"     binding:"omitempty,min=0"`
	Semester  string       `json:"semester"   binding:"omitempty,len=4,numeric"`
}

// CourseIDsRequest 按 ID 批量取课程
type CourseIDsRequest struct {
	IDs    []string `json:"ids"    binding:"required"`
	Sorted *bool    `json:"sorted"` // 缺省为 true
}

// CourseResponse 课程信息
type CourseResponse struct {
	ID             string               `json:"id"`
	Semester       string               `json:"semester"`
	Serial         string               `json:"serial"`
	Code           string               `json:"code"`
	Identifier     string               `json:"identifier"`
	Name           string               `json:"name"`
	Teacher        string               `json:"teacher"`
	Credits        float64              `json:"credits"`
	EnrollMethod   int                  `json:"enroll_method"`
	Departments    []DepartmentResponse `json:"departments"`
	Areas          []AreaResponse       `json:"areas"`
	Specialties    []SpecialtyResponse  `json:"specialties"`
	Schedules      []ScheduleResponse   `json:"schedules"`
	Prerequisites  []string             `json:"prerequisites"`
	PrerequisiteOf []string             `json:"prerequisite_of"`
}

// DepartmentResponse 系所信息
// 仅有名称的系所 ID 等字段为 null
type DepartmentResponse struct {
	ID        *string `json:"id"`
	CollegeID *string `json:"college_id"`
	NameShort *string `json:"name_short"`
	NameFull  string  `json:"name_full"`
	NameAlt   *string `json:"name_alt"`
}

// AreaResponse 领域信息
type AreaResponse struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

// SpecialtyResponse 学程信息
type SpecialtyResponse struct {
	SpecialtyID string `json:"specialty_id"`
	Name        string `json:"name"`
}

// ScheduleResponse 上课时段
type ScheduleResponse struct {
	Weekday  int    `json:"weekday"`
	Interval string `json:"interval"`
	Location string `json:"location"`
}

// CourseListResponse 课程列表
type CourseListResponse struct {
	Courses    []*CourseResponse `json:"courses"`
	TotalCount int64             `json:"total_count"`
}
