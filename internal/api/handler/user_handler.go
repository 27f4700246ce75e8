package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/service"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
// 所有路由均需认证，操作对象为 Token subject 对应的用户
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetUser 获取本人资料
// GET /api/v2/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Get(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// CreateUser 为当前身份创建资料
// POST /api/v2/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 23001, err)
		return
	}

	user, err := h.userSvc.Create(c.Request.Context(), callerID, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.Created(c, user)
}

// UpdateUser 更新本人资料
// PATCH /api/v2/users
func (h *UserHandler) UpdateUser(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 23001, err)
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), callerID, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// DeleteProfile 删除本人资料
// DELETE /api/v2/users/profile
func (h *UserHandler) DeleteProfile(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.userSvc.DeleteProfile(c.Request.Context(), callerID); err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, nil)
}

// AddFavorite 收藏课程
// PUT /api/v2/users/favorites/:course_id
func (h *UserHandler) AddFavorite(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.userSvc.AddFavorite(c.Request.Context(), callerID, c.Param("course_id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, result)
}

// RemoveFavorite 取消收藏
// DELETE /api/v2/users/favorites/:course_id
func (h *UserHandler) RemoveFavorite(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.userSvc.RemoveFavorite(c.Request.Context(), callerID, c.Param("course_id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, result)
}

// LinkCourseTable 将课表关联到本人
// POST /api/v2/users/:id/course_table
func (h *UserHandler) LinkCourseTable(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.LinkCourseTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, 23001, err)
		return
	}

	user, err := h.userSvc.LinkCourseTable(c.Request.Context(), c.Param("id"), callerID, req.CourseTableID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case isConsistency(err):
		respondKind(c, err, 23000)
	case errors.Is(err, service.ErrUserForbidden):
		response.Forbidden(c, 23003, "无权访问该用户数据")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 23004, "用户不存在")
	case errors.Is(err, service.ErrCourseTableNotFound):
		response.NotFound(c, 23005, "课表不存在")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 23006, "课程不存在")
	case errors.Is(err, service.ErrUserExists):
		response.Conflict(c, 23009, "用户资料已存在")
	case errors.Is(err, service.ErrEmailRegistered):
		response.Conflict(c, 23010, "邮箱已注册")
	case errors.Is(err, service.ErrFavoriteExists):
		response.Conflict(c, 23011, "课程已在收藏中")
	case errors.Is(err, service.ErrTableAlreadyLinked):
		response.Conflict(c, 23012, "课表已关联到该用户")
	case errors.Is(err, service.ErrTableOwnedByOther):
		response.Conflict(c, 23013, "课表已关联到其他用户")
	case errors.Is(err, service.ErrDepartmentInvalid):
		response.BadRequest(c, 23002, "系所不存在")
	default:
		respondKind(c, err, 23000)
	}
}
