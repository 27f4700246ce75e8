package dto

import "time"

// ── 课表模块 DTO ──

// CreateCourseTableRequest 创建课表请求
// 未提供 ID 时由服务端生成；携带登录凭证时直接创建为本人课表
type CreateCourseTableRequest struct {
	ID       string `json:"id"       binding:"omitempty,uuid"`
	Name     string `json:"name"     binding:"required,max=100"`
	Semester string `json:"semester" binding:"required"`
}

// PatchCourseTableRequest 修改课表请求
// 归属只能通过关联接口变更
type PatchCourseTableRequest struct {
	Name    *string  `json:"name"    binding:"omitempty,min=1,max=100"`
	Courses []string `json:"courses" binding:"omitempty,max=200"`
}

// CourseTableResponse 课表详情，课程按顺序展开，不存在的课程为 null
type CourseTableResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Semester string            `json:"semester"`
	UserID   *string           `json:"user_id"`
	ExpireTs *time.Time        `json:"expire_ts"`
	Courses  []*CourseResponse `json:"courses"`
	Version  int               `json:"version"`
}

// CourseTableSummary 课表概要，课程仅含 ID
type CourseTableSummary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Semester string     `json:"semester"`
	UserID   *string    `json:"user_id"`
	ExpireTs *time.Time `json:"expire_ts"`
	Courses  []string   `json:"courses"`
	Version  int        `json:"version"`
}
