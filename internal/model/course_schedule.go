package model

// CourseSchedule 课程上课时段，对应 course_schedules
type CourseSchedule struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"          json:"-"`
	CourseID string `gorm:"type:varchar(32);not null;index"   json:"-"`
	Weekday  int    `gorm:"type:smallint;not null"            json:"weekday"`  // 1-7
	Interval string `gorm:"type:varchar(4);not null"          json:"interval"` // 节次代号：0-10, A-D
	Location string `gorm:"type:varchar(100)"                 json:"location"`
}

// TableName 指定表名
func (CourseSchedule) TableName() string { return "course_schedules" }
