package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/service"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// LiveDataHandler 课程实时数据 HTTP 处理器
type LiveDataHandler struct {
	liveSvc service.LiveDataService
}

// NewLiveDataHandler 创建 LiveDataHandler
func NewLiveDataHandler(liveSvc service.LiveDataService) *LiveDataHandler {
	return &LiveDataHandler{liveSvc: liveSvc}
}

// GetEnrollInfo 选课人数
// GET /api/v2/courses/:id/enrollinfo
func (h *LiveDataHandler) GetEnrollInfo(c *gin.Context) {
	h.get(c, model.LiveDataEnrollInfo, "")
}

// GetRating 课程评价
// GET /api/v2/courses/:id/rating
func (h *LiveDataHandler) GetRating(c *gin.Context) {
	h.get(c, model.LiveDataRating, "")
}

// GetBoard 讨论版镜像
// GET /api/v2/courses/:id/ptt/:board
func (h *LiveDataHandler) GetBoard(c *gin.Context) {
	h.get(c, model.LiveDataBoard, c.Param("board"))
}

// GetSyllabus 课程大纲
// GET /api/v2/courses/:id/syllabus
func (h *LiveDataHandler) GetSyllabus(c *gin.Context) {
	h.get(c, model.LiveDataSyllabus, "")
}

func (h *LiveDataHandler) get(c *gin.Context, kind model.LiveDataKind, subType string) {
	result, err := h.liveSvc.Get(c.Request.Context(), kind, c.Param("id"), subType)
	if err != nil {
		h.handleLiveDataError(c, err)
		return
	}
	response.OK(c, result)
}

// GetHistory 历史拉取记录
// GET /api/v2/courses/:id/history/:kind?limit=20
func (h *LiveDataHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 || limit > 500 {
		response.BadRequest(c, 24001, "limit 必须在 0-500 之间")
		return
	}

	items, err := h.liveSvc.History(c.Request.Context(), model.LiveDataKind(c.Param("kind")), c.Param("id"), "", limit)
	if err != nil {
		h.handleLiveDataError(c, err)
		return
	}
	response.OK(c, gin.H{"list": items})
}

func (h *LiveDataHandler) handleLiveDataError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownLiveDataKind):
		response.BadRequest(c, 24002, "未知的实时数据类别")
	case errors.Is(err, service.ErrUnknownBoardType):
		response.BadRequest(c, 24003, "未知的讨论版类型")
	case errors.Is(err, service.ErrNoLiveDataHistory):
		response.BadRequest(c, 24004, "该类别不保留历史记录")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 24005, "课程不存在")
	default:
		respondKind(c, err, 24000)
	}
}
