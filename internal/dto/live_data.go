package dto

import (
	"encoding/json"
	"time"
)

// ── 实时数据 DTO ──

// LiveDataResponse 实时数据
// Content 为 null 表示上游不可用且无可沿用的旧值；Stale 表示最近一次拉取失败
type LiveDataResponse struct {
	CourseID string          `json:"course_id"`
	Kind     string          `json:"kind"`
	SubType  string          `json:"sub_type,omitempty"`
	Content  json.RawMessage `json:"content"`
	UpdateTs time.Time       `json:"update_ts"`
	Stale    bool            `json:"stale"`
}

// LiveDataHistoryItem 历史拉取记录
type LiveDataHistoryItem struct {
	Content json.RawMessage `json:"content"`
	FetchOK bool            `json:"fetch_ok"`
	FetchTs time.Time       `json:"fetch_ts"`
}
