package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"douyin_copy_v1_202608/internal/controller"
	"douyin_copy_v1_202608/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	authCtl *controller.AuthController,
	generateCtl *controller.GenerateController,
	creditCtl *controller.CreditController) {

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// auth 认证组，无需登录
		auth := api.Group("/auth")
		{
			// POST /api/auth/register
			auth.POST("/register", authCtl.Register)

			// POST /api/auth/login
			auth.POST("/login", authCtl.Login)

			// POST /api/auth/verify
			auth.POST("/verify", authCtl.Verify)
		}

		// 业务接口，需要登录
		authed := api.Group("")
		authed.Use(middleware.JWTAuth())
		{
			// POST /api/generate
			authed.POST("/generate", generateCtl.Generate)

			// GET /api/usage
			authed.GET("/usage", generateCtl.Usage)

			// POST /api/recharge
			authed.POST("/recharge", creditCtl.Recharge)

			// GET /api/credits
			authed.GET("/credits", creditCtl.Balance)
		}
	}
}
