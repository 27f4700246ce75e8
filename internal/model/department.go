package model

// Department 系所表，对应 departments
type Department struct {
	ID        string  `gorm:"type:varchar(16);primaryKey" json:"id"`
	CollegeID *string `gorm:"type:varchar(16)"            json:"college_id"`
	NameShort *string `gorm:"type:varchar(50)"            json:"name_short"`
	NameFull  string  `gorm:"type:varchar(100);not null"  json:"name_full"`
	NameAlt   *string `gorm:"type:varchar(100)"           json:"name_alt"`
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

// Area 共同必修/通识领域表，对应 areas
type Area struct {
	ID   string `gorm:"type:varchar(16);primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);not null"  json:"name"`
}

func (Area) TableName() string { return "areas" }

// Specialty 学程表，对应 specialties
type Specialty struct {
	ID   string `gorm:"type:varchar(16);primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);not null"  json:"name"`
}

func (Specialty) TableName() string { return "specialties" }
