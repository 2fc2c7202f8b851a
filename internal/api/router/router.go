package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classhub/config"
	"classhub/internal/api/handler"
	"classhub/internal/api/middleware"
	"classhub/pkg/jwt"
	"classhub/pkg/redis"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流与 Token 黑名单均降级关闭
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// nil *redis.Client 直接转接口会得到非 nil 接口值
	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, 10, time.Minute), h.Auth.Login)
			auth.POST("/register", middleware.RateLimit(limiter, 5, time.Minute), h.Auth.Register)
		}

		// 内部接口：共享密钥鉴权，供外部 cron 触发
		internal := v1.Group("/internal")
		{
			internal.POST("/announcements/publish-due", h.Internal.PublishDue)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 团队模块
			teams := authorized.Group("/teams")
			{
				teams.POST("", middleware.RoleAuth("teacher", "admin", "staff"), h.Team.CreateTeam)
				teams.GET("", h.Team.ListMyTeams)
				teams.GET("/:id", h.Team.GetTeam)
				teams.GET("/:id/members", h.Team.ListMembers)
				teams.DELETE("/:id/members/:userId", h.Team.RemoveMember)
				teams.POST("/:id/leave", h.Team.Leave)

				// 团队内邀请码、公告与导出（成员身份在 Service 层校验）
				teams.POST("/:id/invite-codes", h.InviteCode.Issue)
				teams.GET("/:id/invite-codes", h.InviteCode.List)
				teams.GET("/:id/announcements", h.Announcement.ListByTeam)
				teams.GET("/:id/export/roster", h.Export.ExportRoster)
				teams.GET("/:id/export/calendar", h.Export.ExportCalendar)
			}

			// 邀请码兑换
			authorized.POST("/invite-codes/redeem", middleware.RateLimit(limiter, 20, time.Minute), h.InviteCode.Redeem)

			// 公告模块
			announcements := authorized.Group("/announcements")
			{
				announcements.POST("", h.Announcement.Create)
				announcements.GET("/:id", h.Announcement.Get)
				announcements.PUT("/:id", h.Announcement.Update)
				announcements.POST("/:id/schedule", h.Announcement.Schedule)
				announcements.POST("/:id/publish", h.Announcement.PublishNow)
				announcements.POST("/:id/cancel", h.Announcement.Cancel)
				announcements.POST("/:id/revert", h.Announcement.RevertToDraft)
				announcements.POST("/:id/comments", h.Comment.Create)
				announcements.GET("/:id/comments", h.Comment.List)
			}

			authorized.DELETE("/comments/:id", h.Comment.Delete)

			// 收件箱
			inbox := authorized.Group("/inbox")
			{
				inbox.GET("", h.Announcement.Inbox)
				inbox.POST("/:id/read", h.Announcement.MarkRead)
			}
		}
	}

	return r
}
