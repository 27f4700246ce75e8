package model

import "gorm.io/datatypes"

// CourseIDMaxLen 课程 ID 列宽
const CourseIDMaxLen = 32

// Course 课程表，对应 courses
// ID 格式为 "<semester>_<code>"，本服务只读（关联列表除外）
type Course struct {
	ID             string                      `gorm:"type:varchar(32);primaryKey"  json:"id"`
	Semester       string                      `gorm:"type:varchar(8);not null;index" json:"semester"`
	Serial         string                      `gorm:"type:varchar(16)"             json:"serial"`
	Code           string                      `gorm:"type:varchar(16)"             json:"code"`
	Identifier     string                      `gorm:"type:varchar(32)"             json:"identifier"`
	Name           string                      `gorm:"type:varchar(200);not null"   json:"name"`
	Teacher        string                      `gorm:"type:varchar(200)"            json:"teacher"`
	Credits        float64                     `gorm:"not null;default:0"           json:"credits"`
	EnrollMethod   int                         `gorm:"type:smallint;not null"       json:"enroll_method"`
	DepartmentsRaw datatypes.JSONSlice[string] `gorm:"type:jsonb"                   json:"departments_raw"` // 无正式系所记录的系所名称

	// 关联
	Departments    []CourseDepartment   `gorm:"foreignKey:CourseID;references:ID"    json:"-"`
	Areas          []CourseArea         `gorm:"foreignKey:CourseID;references:ID"    json:"-"`
	Specialties    []CourseSpecialty    `gorm:"foreignKey:CourseID;references:ID"    json:"-"`
	Schedules      []CourseSchedule     `gorm:"foreignKey:CourseID;references:ID"    json:"-"`
	Prerequisites  []CoursePrerequisite `gorm:"foreignKey:CourseID;references:ID"    json:"-"`
	PrerequisiteOf []CoursePrerequisite `gorm:"foreignKey:PreCourseID;references:ID" json:"-"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// CourseDepartment 课程-系所关联，对应 course_departments
type CourseDepartment struct {
	CourseID     string `gorm:"type:varchar(32);primaryKey"`
	DepartmentID string `gorm:"type:varchar(16);primaryKey"`

	Department *Department `gorm:"foreignKey:DepartmentID;references:ID"`
}

func (CourseDepartment) TableName() string { return "course_departments" }

// CourseArea 课程-领域关联，对应 course_areas
type CourseArea struct {
	CourseID string `gorm:"type:varchar(32);primaryKey"`
	AreaID   string `gorm:"type:varchar(16);primaryKey"`

	Area *Area `gorm:"foreignKey:AreaID;references:ID"`
}

func (CourseArea) TableName() string { return "course_areas" }

// CourseSpecialty 课程-学程关联，对应 course_specialties
type CourseSpecialty struct {
	CourseID    string `gorm:"type:varchar(32);primaryKey"`
	SpecialtyID string `gorm:"type:varchar(16);primaryKey"`

	Specialty *Specialty `gorm:"foreignKey:SpecialtyID;references:ID"`
}

func (CourseSpecialty) TableName() string { return "course_specialties" }

// CoursePrerequisite 先修关系（有向边 CourseID → PreCourseID），对应 course_prerequisites
type CoursePrerequisite struct {
	CourseID    string `gorm:"type:varchar(32);primaryKey"`
	PreCourseID string `gorm:"type:varchar(32);primaryKey"`
}

func (CoursePrerequisite) TableName() string { return "course_prerequisites" }
