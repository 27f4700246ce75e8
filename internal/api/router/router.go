package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/api/handler"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/api/middleware"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/jwt"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/api/v1/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	auth := middleware.JWTAuth(jwtMgr)
	optionalAuth := middleware.OptionalAuth(jwtMgr)
	admin := middleware.RoleAuth(jwt.RoleAdmin)
	limit := middleware.RateLimit(rdb, cfg.Server.RateLimit, cfg.Server.RateWindow, logger)

	// ── API v2 ──
	v2 := r.Group("/api/v2")
	{
		// 课程模块
		courses := v2.Group("/courses")
		{
			courses.GET("", auth, admin, h.Course.ListCourses)
			courses.POST("/search", h.Course.SearchCourses)
			courses.POST("/ids", middleware.BodyLimit(idsBodyLimit(cfg.Course.RequestLimit)), h.Course.GetCoursesByIDs)
			courses.GET("/:id", h.Course.GetCourse)

			// 实时数据：访问上游，按客户端限流
			courses.GET("/:id/enrollinfo", auth, limit, h.LiveData.GetEnrollInfo)
			courses.GET("/:id/rating", auth, limit, h.LiveData.GetRating)
			courses.GET("/:id/ptt/:board", auth, limit, h.LiveData.GetBoard)
			courses.GET("/:id/syllabus", limit, h.LiveData.GetSyllabus)
			courses.GET("/:id/history/:kind", auth, h.LiveData.GetHistory)
		}

		// 课表模块：访客可创建与修改，登录后创建即归属本人
		tables := v2.Group("/course_tables")
		{
			tables.GET("", auth, admin, h.CourseTable.ListCourseTables)
			tables.GET("/:id", h.CourseTable.GetCourseTable)
			tables.GET("/:id/export", h.CourseTable.ExportCourseTable)
			tables.POST("", optionalAuth, h.CourseTable.CreateCourseTable)
			tables.PATCH("/:id", optionalAuth, h.CourseTable.PatchCourseTable)
			tables.DELETE("/:id", auth, admin, h.CourseTable.DeleteCourseTable)
		}

		// 用户模块
		users := v2.Group("/users")
		users.Use(auth)
		{
			users.POST("", h.User.CreateUser)
			users.PATCH("", h.User.UpdateUser)
			users.DELETE("/profile", h.User.DeleteProfile)
			users.PUT("/favorites/:course_id", h.User.AddFavorite)
			users.DELETE("/favorites/:course_id", h.User.RemoveFavorite)
			users.GET("/:id", h.User.GetUser)
			users.POST("/:id/course_table", h.User.LinkCourseTable)
		}

		// 课程社群
		social := v2.Group("/social")
		social.Use(auth)
		{
			social.GET("/posts/:id", h.Social.GetPost)
			social.POST("/posts/:id/report", h.Social.ReportPost)
			social.PATCH("/posts/:id/votes", h.Social.VotePost)
			social.DELETE("/posts/:id", h.Social.DeletePost)
			social.GET("/courses/:id/posts", h.Social.ListCoursePosts)
			social.POST("/courses/:id/posts", h.Social.CreatePost)
		}
	}

	return r
}

// idsBodyLimit 批量取课程的请求体上限：request_limit 个最长课程 ID 加上 JSON 开销
func idsBodyLimit(requestLimit int) int64 {
	return int64(requestLimit)*int64(model.CourseIDMaxLen+3) + 64
}
