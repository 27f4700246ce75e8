package model

import (
	"time"

	"gorm.io/datatypes"
)

// LiveDataKind 实时数据类别
type LiveDataKind string

const (
	LiveDataEnrollInfo LiveDataKind = "enrollinfo" // 选课人数
	LiveDataRating     LiveDataKind = "rating"     // 课程评价
	LiveDataBoard      LiveDataKind = "board"      // 讨论版镜像，SubType 为版面类型
	LiveDataSyllabus   LiveDataKind = "syllabus"   // 课程大纲
)

// LiveDataMode 写入方式
const (
	LiveDataModeAppend = "append" // 追加日志，按 fetch_ts 取最新
	LiveDataModeUpsert = "upsert" // 每个 key 一行，原地覆盖
)

// LiveDataEntry 实时数据缓存条目，对应 live_data_entries
//
// Content 为 nil 表示上游拉取失败且无旧值可沿用；
// FetchOK=false 表示该条目由失败的拉取写入（内容为 null 或沿用的旧值）。
type LiveDataEntry struct {
	ID       int64          `gorm:"primaryKey;autoIncrement"                                                   json:"id"`
	CourseID string         `gorm:"type:varchar(32);not null;index:idx_live_data_key,priority:1;uniqueIndex:idx_live_data_upsert_key,priority:1,where:mode = 'upsert'" json:"course_id"`
	Kind     LiveDataKind   `gorm:"type:varchar(16);not null;index:idx_live_data_key,priority:2;uniqueIndex:idx_live_data_upsert_key,priority:2,where:mode = 'upsert'" json:"kind"`
	SubType  string         `gorm:"type:varchar(16);not null;default:'';index:idx_live_data_key,priority:3;uniqueIndex:idx_live_data_upsert_key,priority:3,where:mode = 'upsert'" json:"sub_type"`
	Content  datatypes.JSON `gorm:"type:jsonb"                                                                 json:"content"`
	FetchOK  bool           `gorm:"not null;default:false"                                                     json:"fetch_ok"`
	FetchTs  time.Time      `gorm:"not null;index:idx_live_data_key,priority:4,sort:desc"                      json:"fetch_ts"`
	Mode     string         `gorm:"type:varchar(8);not null"                                                   json:"mode"`
}

// TableName 指定表名
func (LiveDataEntry) TableName() string { return "live_data_entries" }
