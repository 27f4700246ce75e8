package handler

import "github.com/NTUCourse-Neo/ncn-backend-v2/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Course      *CourseHandler
	CourseTable *CourseTableHandler
	User        *UserHandler
	LiveData    *LiveDataHandler
	Social      *SocialHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Course:      NewCourseHandler(svc.Course),
		CourseTable: NewCourseTableHandler(svc.CourseTable, svc.Export),
		User:        NewUserHandler(svc.User),
		LiveData:    NewLiveDataHandler(svc.LiveData),
		Social:      NewSocialHandler(svc.Social),
	}
}
