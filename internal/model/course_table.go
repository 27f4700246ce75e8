package model

import (
	"time"

	"gorm.io/datatypes"
)

// CourseTable 课表，对应 course_tables
//
// 归属不变式：UserID 与 ExpireTs 恰有一个非空
//   - 访客课表：UserID = nil，ExpireTs = 创建时间 + 有效期
//   - 用户课表：UserID = 用户 ID，ExpireTs = nil
type CourseTable struct {
	ID       string                      `gorm:"type:uuid;primaryKey"         json:"id"`
	Name     string                      `gorm:"type:varchar(100);not null"   json:"name"`
	Semester string                      `gorm:"type:varchar(8);not null"     json:"semester"`
	UserID   *string                     `gorm:"type:varchar(128);index"      json:"user_id"`
	Courses  datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"          json:"courses"`
	ExpireTs *time.Time                  `gorm:""                             json:"expire_ts"`
	VersionedModel
}

// TableName 指定表名
func (CourseTable) TableName() string { return "course_tables" }

// IsGuest 是否为访客课表
func (t *CourseTable) IsGuest() bool { return t.UserID == nil }

// IsExpired 访客课表是否已超过有效期；用户课表永不过期
func (t *CourseTable) IsExpired(now time.Time) bool {
	return t.UserID == nil && t.ExpireTs != nil && now.After(*t.ExpireTs)
}

// OwnedBy 课表是否归属指定用户
func (t *CourseTable) OwnedBy(userID string) bool {
	return t.UserID != nil && *t.UserID == userID
}

// Claim 转为用户课表：写入归属并清除过期时间
func (t *CourseTable) Claim(userID string) {
	uid := userID
	t.UserID = &uid
	t.ExpireTs = nil
}

// Release 退回访客课表：清除归属并重新设置过期时间
func (t *CourseTable) Release(expireAt time.Time) {
	t.UserID = nil
	t.ExpireTs = &expireAt
}
