package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/service"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// SocialHandler 课程社群 HTTP 处理器，所有路由均需认证
type SocialHandler struct {
	socialSvc service.SocialService
}

// NewSocialHandler 创建 SocialHandler
func NewSocialHandler(socialSvc service.SocialService) *SocialHandler {
	return &SocialHandler{socialSvc: socialSvc}
}

// GetPost 获取单篇贴文
// GET /api/v2/social/posts/:id
func (h *SocialHandler) GetPost(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	post, err := h.socialSvc.GetPost(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleSocialError(c, err)
		return
	}
	response.OK(c, post)
}

// ListCoursePosts 课程下所有贴文
// GET /api/v2/social/courses/:id/posts
func (h *SocialHandler) ListCoursePosts(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	posts, err := h.socialSvc.ListCoursePosts(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleSocialError(c, err)
		return
	}
	response.OK(c, gin.H{"list": posts})
}

// CreatePost 在课程下发布贴文
// POST /api/v2/social/courses/:id/posts
func (h *SocialHandler) CreatePost(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 25001, err)
		return
	}

	post, err := h.socialSvc.CreatePost(c.Request.Context(), c.Param("id"), callerID, &req)
	if err != nil {
		h.handleSocialError(c, err)
		return
	}
	response.Created(c, post)
}

// ReportPost 检举贴文
// POST /api/v2/social/posts/:id/report
func (h *SocialHandler) ReportPost(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReportPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 25001, err)
		return
	}

	if err := h.socialSvc.ReportPost(c.Request.Context(), c.Param("id"), callerID, &req); err != nil {
		h.handleSocialError(c, err)
		return
	}
	response.OK(c, nil)
}

// VotePost 赞、踩或取消
// PATCH /api/v2/social/posts/:id/votes
func (h *SocialHandler) VotePost(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.VotePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 25001, err)
		return
	}

	post, err := h.socialSvc.VotePost(c.Request.Context(), c.Param("id"), callerID, *req.Type)
	if err != nil {
		h.handleSocialError(c, err)
		return
	}
	response.OK(c, post)
}

// DeletePost 作者删除自己的贴文
// DELETE /api/v2/social/posts/:id
func (h *SocialHandler) DeletePost(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.socialSvc.DeletePost(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleSocialError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *SocialHandler) handleSocialError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidVote):
		response.BadRequest(c, 25002, "不支持的投票类型")
	case errors.Is(err, service.ErrPostNotOwner):
		response.Forbidden(c, 25003, "无权删除该贴文")
	case errors.Is(err, service.ErrPostNotFound), errors.Is(err, service.ErrNoCoursePosts):
		response.NotFound(c, 25004, err.Error())
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 25005, "课程不存在")
	case errors.Is(err, service.ErrReportOwnPost):
		response.BadRequest(c, 25006, "不能检举自己的贴文")
	case errors.Is(err, service.ErrPostExists):
		response.Conflict(c, 25009, "已在该课程发布过贴文")
	case errors.Is(err, service.ErrPostAlreadyReported):
		response.Conflict(c, 25010, "已检举过该贴文")
	case errors.Is(err, service.ErrAlreadyVoted):
		response.Conflict(c, 25011, "已投过相同的票")
	default:
		respondKind(c, err, 25000)
	}
}
