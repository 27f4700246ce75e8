package dto

import (
	"encoding/json"
	"time"
)

// ── 课程社群 DTO ──

// CreatePostRequest 发布贴文
type CreatePostRequest struct {
	Type     string          `json:"type"      binding:"required,max=32"`
	Content  json.RawMessage `json:"content"   binding:"required"`
	UserType string          `json:"user_type" binding:"omitempty,max=32"`
}

// ReportPostRequest 检举贴文
type ReportPostRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// VotePostRequest 投票：1 赞，-1 踩，0 取消
type VotePostRequest struct {
	Type *int `json:"type" binding:"required"`
}

// PostResponse 贴文，投票只返回计数与调用方自己的投票
type PostResponse struct {
	ID             string          `json:"id"`
	CourseID       string          `json:"course_id"`
	Type           string          `json:"type"`
	Content        json.RawMessage `json:"content"`
	IsOwner        bool            `json:"is_owner"`
	UserType       string          `json:"user_type"`
	CreateTs       time.Time       `json:"create_ts"`
	Upvotes        int             `json:"upvotes"`
	Downvotes      int             `json:"downvotes"`
	SelfVoteStatus int             `json:"self_vote_status"`
}
