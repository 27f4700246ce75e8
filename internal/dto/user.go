package dto

// ── 用户模块 DTO ──

// CreateUserRequest 为当前登录身份创建资料
type CreateUserRequest struct {
	Name  string `json:"name"  binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
}

// UpdateUserRequest 更新用户资料
// ID、邮箱、学号、课表列表不可通过此接口修改
type UpdateUserRequest struct {
	Name           *string  `json:"name"            binding:"omitempty,min=1,max=100"`
	Year           *int     `json:"year"            binding:"omitempty,min=0,max=10"`
	Major          *string  `json:"major"           binding:"omitempty,max=16"`
	DMajor         *string  `json:"d_major"         binding:"omitempty,max=16"`
	Minors         []string `json:"minors"          binding:"omitempty,max=10"`
	HistoryCourses []string `json:"history_courses" binding:"omitempty,max=500"`
}

// LinkCourseTableRequest 关联课表请求
type LinkCourseTableRequest struct {
	CourseTableID string `json:"course_table_id" binding:"required"`
}

// UserResponse 用户资料，系所与收藏课程已展开
type UserResponse struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	StudentID      *string              `json:"student_id"`
	Year           int                  `json:"year"`
	Major          *DepartmentResponse  `json:"major"`
	DMajor         *DepartmentResponse  `json:"d_major"`
	Minors         []DepartmentResponse `json:"minors"`
	Favorites      []*CourseResponse    `json:"favorites"`
	CourseTables   []string             `json:"course_tables"`
	HistoryCourses []string             `json:"history_courses"`
}

// FavoritesResponse 收藏课程列表
type FavoritesResponse struct {
	Favorites []*CourseResponse `json:"favorites"`
}
