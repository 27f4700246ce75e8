package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/service"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListCourses 全部课程（管理员）
// GET /api/v2/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseSvc.ListAll(c.Request.Context())
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, gin.H{"courses": courses, "total_count": len(courses)})
}

// SearchCourses 按关键字与过滤条件搜索
// POST /api/v2/courses/search
func (h *CourseHandler) SearchCourses(c *gin.Context) {
	var req dto.CourseSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 21001, err)
		return
	}

	result, err := h.courseSvc.Search(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, result)
}

// GetCoursesByIDs 批量获取课程
// POST /api/v2/courses/ids
func (h *CourseHandler) GetCoursesByIDs(c *gin.Context) {
	var req dto.CourseIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 21001, err)
		return
	}

	sorted := true
	if req.Sorted != nil {
		sorted = *req.Sorted
	}

	result, err := h.courseSvc.GetByIDs(c.Request.Context(), req.IDs, sorted)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, result)
}

// GetCourse 获取单门课程
// GET /api/v2/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, course)
}

func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 21004, "课程不存在")
	case errors.Is(err, service.ErrInvalidKeywordFields):
		response.BadRequest(c, 21002, "无效的搜索字段")
	case errors.Is(err, service.ErrTooManyCourseIDs):
		response.BadRequest(c, 21003, "请求的课程 ID 数量超过上限")
	default:
		respondKind(c, err, 21000)
	}
}
