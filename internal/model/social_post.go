package model

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// 投票类型
const (
	VoteDown   = -1
	VoteCancel = 0
	VoteUp     = 1
)

// SocialPost 课程社群贴文，对应 social_posts
// 每位用户在每门课程下至多一篇
type SocialPost struct {
	ID        string                      `gorm:"type:uuid;primaryKey"                                  json:"id"`
	CourseID  string                      `gorm:"type:varchar(32);not null;uniqueIndex:uk_social_posts_course_user" json:"course_id"`
	UserID    string                      `gorm:"type:varchar(128);not null;uniqueIndex:uk_social_posts_course_user" json:"user_id"`
	Type      string                      `gorm:"type:varchar(32);not null"                             json:"type"`
	UserType  string                      `gorm:"type:varchar(32);not null;default:''"                  json:"user_type"`
	Content   datatypes.JSON              `gorm:"type:jsonb;not null"                                   json:"content"`
	Upvotes   datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"                                   json:"upvotes"`
	Downvotes datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"                                   json:"downvotes"`
	VersionedModel
}

// TableName 指定表名
func (SocialPost) TableName() string { return "social_posts" }

// VoteOf 用户当前的投票：1 赞，-1 踩，0 未投票
func (p *SocialPost) VoteOf(userID string) int {
	switch {
	case slices.Contains(p.Upvotes, userID):
		return VoteUp
	case slices.Contains(p.Downvotes, userID):
		return VoteDown
	default:
		return VoteCancel
	}
}

// SetVote 将用户的投票改为 vote，赞与踩互斥
func (p *SocialPost) SetVote(userID string, vote int) {
	p.Upvotes = slices.DeleteFunc(slices.Clone(p.Upvotes), func(id string) bool { return id == userID })
	p.Downvotes = slices.DeleteFunc(slices.Clone(p.Downvotes), func(id string) bool { return id == userID })
	switch vote {
	case VoteUp:
		p.Upvotes = append(p.Upvotes, userID)
	case VoteDown:
		p.Downvotes = append(p.Downvotes, userID)
	}
}

// PostReport 贴文检举，对应 post_reports
// 每位用户对每篇贴文至多检举一次
type PostReport struct {
	ID             string     `gorm:"type:uuid;primaryKey"                                        json:"id"`
	PostID         string     `gorm:"type:uuid;not null;uniqueIndex:uk_post_reports_post_user"   json:"post_id"`
	UserID         string     `gorm:"type:varchar(128);not null;uniqueIndex:uk_post_reports_post_user" json:"user_id"`
	Reason         string     `gorm:"type:text;not null"                                          json:"reason"`
	ResolveComment *string    `gorm:"type:text"                                                   json:"resolve_comment"`
	ResolvedTs     *time.Time `gorm:""                                                            json:"resolved_ts"`
	BaseModel
}

// TableName 指定表名
func (PostReport) TableName() string { return "post_reports" }
