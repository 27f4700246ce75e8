package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/service"
)

// ── Mock SocialService ──

type mockSocialService struct {
	post     *dto.PostResponse
	err      error
	callerID string
	courseID string
	vote     int
}

func (m *mockSocialService) GetPost(_ context.Context, _, callerID string) (*dto.PostResponse, error) {
	m.callerID = callerID
	return m.post, m.err
}

func (m *mockSocialService) ListCoursePosts(_ context.Context, courseID, callerID string) ([]dto.PostResponse, error) {
	m.courseID, m.callerID = courseID, callerID
	if m.err != nil {
		return nil, m.err
	}
	return []dto.PostResponse{*m.post}, nil
}

func (m *mockSocialService) CreatePost(_ context.Context, courseID, callerID string, _ *dto.CreatePostRequest) (*dto.PostResponse, error) {
	m.courseID, m.callerID = courseID, callerID
	return m.post, m.err
}

func (m *mockSocialService) ReportPost(_ context.Context, _, callerID string, _ *dto.ReportPostRequest) error {
	m.callerID = callerID
	return m.err
}

func (m *mockSocialService) VotePost(_ context.Context, _, callerID string, vote int) (*dto.PostResponse, error) {
	m.callerID, m.vote = callerID, vote
	return m.post, m.err
}

func (m *mockSocialService) DeletePost(_ context.Context, _, callerID string) error {
	m.callerID = callerID
	return m.err
}

func newSocialEngine(mock *mockSocialService) *gin.Engine {
	h := NewSocialHandler(mock)
	r := gin.New()
	r.Use(withUser("u1"))
	r.GET("/social/posts/:id", h.GetPost)
	r.POST("/social/posts/:id/report", h.ReportPost)
	r.PATCH("/social/posts/:id/votes", h.VotePost)
	r.DELETE("/social/posts/:id", h.DeletePost)
	r.GET("/social/courses/:id/posts", h.ListCoursePosts)
	r.POST("/social/courses/:id/posts", h.CreatePost)
	return r
}

// ═══════════════════════════════════════════════════════════
// SocialHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSocialHandler_RequiresAuth(t *testing.T) {
	h := NewSocialHandler(&mockSocialService{})
	r := gin.New()
	r.GET("/social/posts/:id", h.GetPost)

	w := serve(r, "GET", "/social/posts/p1", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestSocialHandler_CreatePost(t *testing.T) {
	mock := &mockSocialService{post: &dto.PostResponse{ID: "p1", CourseID: "1141_A"}}
	r := newSocialEngine(mock)

	body := map[string]any{"type": "review", "content": map[string]string{"comment": "推荐"}, "user_type": "student"}
	w := serve(r, "POST", "/social/courses/1141_A/posts", jsonBody(body))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.courseID != "1141_A" || mock.callerID != "u1" {
		t.Errorf("课程与调用方未透传: %q %q", mock.courseID, mock.callerID)
	}

	// 缺少 content
	w = serve(r, "POST", "/social/courses/1141_A/posts", jsonBody(map[string]any{"type": "review"}))
	if w.Code != http.StatusBadRequest || parseResponse(w).Code != 25001 {
		t.Errorf("expected 400/25001, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestSocialHandler_VotePost(t *testing.T) {
	mock := &mockSocialService{post: &dto.PostResponse{ID: "p1", Upvotes: 1, SelfVoteStatus: 1}}
	r := newSocialEngine(mock)

	w := serve(r, "PATCH", "/social/posts/p1/votes", jsonBody(map[string]int{"type": -1}))
	if w.Code != http.StatusOK || mock.vote != -1 {
		t.Errorf("expected 200 with vote -1, got %d vote %d", w.Code, mock.vote)
	}

	// type 为 0 时同样必须显式给出
	mock.vote = 99
	w = serve(r, "PATCH", "/social/posts/p1/votes", jsonBody(map[string]int{"type": 0}))
	if w.Code != http.StatusOK || mock.vote != 0 {
		t.Errorf("expected 200 with vote 0, got %d vote %d", w.Code, mock.vote)
	}

	w = serve(r, "PATCH", "/social/posts/p1/votes", jsonBody(map[string]any{}))
	if w.Code != http.StatusBadRequest || parseResponse(w).Code != 25001 {
		t.Errorf("缺少 type expected 400/25001, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestSocialHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		err      error
		wantHTTP int
		wantCode int
	}{
		{"贴文不存在", "GET", "/social/posts/p9", nil, service.ErrPostNotFound, http.StatusNotFound, 25004},
		{"课程无贴文", "GET", "/social/courses/1141_A/posts", nil, service.ErrNoCoursePosts, http.StatusNotFound, 25004},
		{"课程不存在", "POST", "/social/courses/1141_Z/posts", map[string]any{"type": "review", "content": "x"}, service.ErrCourseNotFound, http.StatusNotFound, 25005},
		{"重复发布", "POST", "/social/courses/1141_A/posts", map[string]any{"type": "review", "content": "x"}, service.ErrPostExists, http.StatusConflict, 25009},
		{"重复检举", "POST", "/social/posts/p1/report", map[string]string{"reason": "spam"}, service.ErrPostAlreadyReported, http.StatusConflict, 25010},
		{"检举自己", "POST", "/social/posts/p1/report", map[string]string{"reason": "spam"}, service.ErrReportOwnPost, http.StatusBadRequest, 25006},
		{"重复投票", "PATCH", "/social/posts/p1/votes", map[string]int{"type": 1}, service.ErrAlreadyVoted, http.StatusConflict, 25011},
		{"非法投票", "PATCH", "/social/posts/p1/votes", map[string]int{"type": 3}, service.ErrInvalidVote, http.StatusBadRequest, 25002},
		{"非作者删除", "DELETE", "/social/posts/p1", nil, service.ErrPostNotOwner, http.StatusForbidden, 25003},
		{"存储错误", "DELETE", "/social/posts/p1", nil, errors.New("db down"), http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockSocialService{post: &dto.PostResponse{ID: "p1"}, err: tt.err}
			r := newSocialEngine(mock)

			var body io.Reader
			if tt.body != nil {
				body = jsonBody(tt.body)
			}
			w := serve(r, tt.method, tt.path, body)
			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}
