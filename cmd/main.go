package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"douyin_copy_v1_202608/internal/config"
	"douyin_copy_v1_202608/internal/controller"
	"douyin_copy_v1_202608/internal/middleware"
	"douyin_copy_v1_202608/internal/model"
	"douyin_copy_v1_202608/internal/repository"
	"douyin_copy_v1_202608/internal/router"
	"douyin_copy_v1_202608/internal/service"
	"douyin_copy_v1_202608/internal/task"
	"douyin_copy_v1_202608/pkg/database"
)

func main() {
	// 1. 加载配置，凭证缺失直接失败
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	// 2. 初始化数据库
	db := initDatabase(cfg)

	// 3. 初始化依赖
	deps := initDependencies(cfg, db)

	// 4. 启动定时任务
	initTasks(cfg, deps)

	// 5. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.AuthCtl, deps.GenerateCtl, deps.CreditCtl)

	// 6. 启动服务
	startServer(cfg, r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB *gorm.DB

	UserRepo repository.UserRepository
	LogRepo  repository.GenerationLogRepository

	AuthSvc     *service.AuthService
	GenerateSvc *service.GenerateService

	AuthCtl     *controller.AuthController
	GenerateCtl *controller.GenerateController
	CreditCtl   *controller.CreditController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	return database.InitDB(
		cfg.Database.DSN(),
		database.Options{
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			LogSQL:       cfg.Database.LogSQL,
		},
		&model.User{},
		&model.GenerationLog{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) *Dependencies {
	// JWT 全局配置
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey: cfg.JWT.SecretKey,
		TokenTTL:  cfg.JWT.TokenTTL,
		Issuer:    cfg.JWT.Issuer,
	})

	// -------- Repo 层 --------
	userRepo := repository.NewUserRepository(db)
	logRepo := repository.NewGenerationLogRepository(db)

	// -------- 生成链路 --------
	promptSvc := service.NewPromptService()
	parserSvc := service.NewParserService()
	gatewaySvc := service.NewGatewayService(&cfg.AI, promptSvc)

	mediaSvc, err := service.NewMediaService(&cfg.Storage)
	if err != nil {
		log.Printf("警告: 媒体归档初始化失败，该功能不可用: %v", err)
		mediaSvc = nil
	}

	guard := middleware.NewGenerationGuard()

	// -------- 业务服务 --------
	authSvc := service.NewAuthService(userRepo)
	generateSvc := service.NewGenerateService(userRepo, logRepo, gatewaySvc, parserSvc, mediaSvc, guard)

	// -------- Controller 层 --------
	return &Dependencies{
		DB:          db,
		UserRepo:    userRepo,
		LogRepo:     logRepo,
		AuthSvc:     authSvc,
		GenerateSvc: generateSvc,
		AuthCtl:     controller.NewAuthController(authSvc),
		GenerateCtl: controller.NewGenerateController(generateSvc),
		CreditCtl:   controller.NewCreditController(authSvc),
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(cfg *config.Config, deps *Dependencies) {
	cleanupTask := task.NewCleanupTask(deps.LogRepo, cfg.Retention.LogDays)
	if err := cleanupTask.Start(); err != nil {
		log.Printf("警告: 日志清理任务启动失败: %v", err)
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(cfg *config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}
