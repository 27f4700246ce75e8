package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/service"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// CourseTableHandler 课表模块 HTTP 处理器
type CourseTableHandler struct {
	tableSvc  service.CourseTableService
	exportSvc service.ExportService
}

// NewCourseTableHandler 创建 CourseTableHandler
func NewCourseTableHandler(tableSvc service.CourseTableService, exportSvc service.ExportService) *CourseTableHandler {
	return &CourseTableHandler{tableSvc: tableSvc, exportSvc: exportSvc}
}

// ListCourseTables 全部课表（管理员）
// GET /api/v2/course_tables
func (h *CourseTableHandler) ListCourseTables(c *gin.Context) {
	tables, err := h.tableSvc.List(c.Request.Context())
	if err != nil {
		h.handleCourseTableError(c, err)
		return
	}
	response.OK(c, gin.H{"course_tables": tables})
}

// GetCourseTable 获取课表，课程按顺序展开
// GET /api/v2/course_tables/:id
func (h *CourseTableHandler) GetCourseTable(c *gin.Context) {
	table, err := h.tableSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseTableError(c, err)
		return
	}
	response.OK(c, table)
}

// CreateCourseTable 创建课表；已登录时直接创建为本人课表
// POST /api/v2/course_tables
func (h *CourseTableHandler) CreateCourseTable(c *gin.Context) {
	var req dto.CreateCourseTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 22001, err)
		return
	}

	table, err := h.tableSvc.Create(c.Request.Context(), &req, OptionalUserID(c))
	if err != nil {
		h.handleCourseTableError(c, err)
		return
	}
	response.Created(c, table)
}

// PatchCourseTable 修改课表名称或课程列表
// PATCH /api/v2/course_tables/:id
func (h *CourseTableHandler) PatchCourseTable(c *gin.Context) {
	var req dto.PatchCourseTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 22001, err)
		return
	}

	table, err := h.tableSvc.Patch(c.Request.Context(), c.Param("id"), &req, OptionalUserID(c))
	if err != nil {
		h.handleCourseTableError(c, err)
		return
	}
	response.OK(c, table)
}

// DeleteCourseTable 删除课表（管理员）
// DELETE /api/v2/course_tables/:id
func (h *CourseTableHandler) DeleteCourseTable(c *gin.Context) {
	if err := h.tableSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleCourseTableError(c, err)
		return
	}
	response.OK(c, nil)
}

// ExportCourseTable 导出课表
// GET /api/v2/course_tables/:id/export?format=xlsx|ics
func (h *CourseTableHandler) ExportCourseTable(c *gin.Context) {
	id := c.Param("id")

	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)
	switch c.DefaultQuery("format", "xlsx") {
	case "xlsx":
		buf, name, e := h.exportSvc.ExportXLSX(c.Request.Context(), id)
		if e == nil {
			data = buf.Bytes()
		}
		filename, err = name, e
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "ics":
		data, filename, err = h.exportSvc.ExportICS(c.Request.Context(), id)
		contentType = "text/calendar; charset=utf-8"
	default:
		response.BadRequest(c, 22001, "format 仅支持 xlsx 或 ics")
		return
	}
	if err != nil {
		h.handleCourseTableError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *CourseTableHandler) handleCourseTableError(c *gin.Context, err error) {
	switch {
	case isConsistency(err):
		respondKind(c, err, 22000)
	case errors.Is(err, service.ErrCourseTableNotFound):
		response.NotFound(c, 22004, "课表不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 22005, "用户不存在")
	case errors.Is(err, service.ErrSemesterInactive):
		response.Forbidden(c, 22003, "不是当前学期")
	case errors.Is(err, service.ErrCourseTableExpired):
		response.Forbidden(c, 22006, "课表已过期")
	case errors.Is(err, service.ErrCourseTableNotOwner):
		response.Forbidden(c, 22007, "无权修改该课表")
	case errors.Is(err, service.ErrCourseSemesterMismatch):
		response.Forbidden(c, 22008, "课程学期与课表学期不一致")
	case errors.Is(err, service.ErrCourseTableExists):
		response.Conflict(c, 22009, "课表已存在")
	case errors.Is(err, service.ErrExportNoSemesterStart):
		response.BadRequest(c, 22011, "未配置学期开始日期，无法导出日历")
	case errors.Is(err, service.ErrExportGenerateFail):
		_ = c.Error(err)
		response.InternalError(c)
	default:
		respondKind(c, err, 22000)
	}
}
