package model

import (
	"slices"

	"gorm.io/datatypes"
)

// User 用户表，对应 users
// ID 与身份提供方的 subject 一致
type User struct {
	ID             string                      `gorm:"type:varchar(128);primaryKey" json:"id"`
	Name           string                      `gorm:"type:varchar(100);not null"   json:"name"`
	Email          string                      `gorm:"type:varchar(255);not null;index" json:"email"`
	StudentID      *string                     `gorm:"type:varchar(20)"             json:"student_id"`
	Year           int                         `gorm:"type:smallint;not null;default:0" json:"year"`
	Major          *string                     `gorm:"type:varchar(16)"             json:"major"`
	DMajor         *string                     `gorm:"type:varchar(16)"             json:"d_major"`
	Minors         datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"          json:"minors"`
	Favorites      datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"          json:"favorites"`
	CourseTables   datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"          json:"course_tables"`
	HistoryCourses datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"          json:"history_courses"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// HasCourseTable 用户课表列表中是否已包含指定课表
func (u *User) HasCourseTable(tableID string) bool {
	return slices.Contains(u.CourseTables, tableID)
}

// HasFavorite 收藏列表中是否已包含指定课程
func (u *User) HasFavorite(courseID string) bool {
	return slices.Contains(u.Favorites, courseID)
}
