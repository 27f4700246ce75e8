package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
// 每次调用只作用于单个聚合，跨聚合一致性由 service 层的补偿流程保证
type Repository struct {
	Course      CourseRepository
	CourseTable CourseTableRepository
	User        UserRepository
	Department  DepartmentRepository
	LiveData    LiveDataRepository
	Post        PostRepository
	PostReport  PostReportRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Course:      NewCourseRepo(db),
		CourseTable: NewCourseTableRepo(db),
		User:        NewUserRepo(db),
		Department:  NewDepartmentRepo(db),
		LiveData:    NewLiveDataRepo(db),
		Post:        NewPostRepo(db),
		PostReport:  NewPostReportRepo(db),
	}
}
