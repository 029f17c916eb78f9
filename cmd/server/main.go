// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gembot-go/internal/config"
	"gembot-go/internal/handler"
	"gembot-go/internal/middleware"
	"gembot-go/internal/model"
	"gembot-go/internal/repository"
	"gembot-go/internal/service"
	"gembot-go/pkg/database"
	"gembot-go/pkg/gemini"
	"gembot-go/pkg/log"
	"gembot-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	promoRepository := repository.NewPromoCodeRepository(database.DB)
	adminRepository := repository.NewAdminRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB, database.RDB, cfg.Chat.MaxHistory*2)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	geminiClient := gemini.NewClient(cfg.Gemini)
	limits := model.QuotaLimits{
		FreeDaily: cfg.Quota.FreeDailyLimit,
		ProDaily:  cfg.Quota.ProDailyLimit,
	}
	entitlementService := service.NewEntitlementService(userRepository, promoRepository, limits)
	generationService := service.NewGenerationService(geminiClient, cfg.Gemini)
	chatService := service.NewChatService(userRepository, conversationRepo, entitlementService, generationService, cfg.Chat, cfg.Pricing)
	adminService := service.NewAdminService(adminRepository, promoRepository, userRepository, jwtManager)

	// 6. 引导写入配置的管理员账号
	if err := adminService.Bootstrap(context.Background(), cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatal("管理员账号引导失败", err)
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 自定义日志中间件 + Recovery 兜底：单个请求的失败不能拖垮进程
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Bot 传输边界
		botHandler := handler.NewBotHandler(chatService)
		bot := apiV1.Group("/bot")
		{
			bot.POST("/message", botHandler.HandleMessage)
			bot.GET("/ws", botHandler.HandleWebSocket)
		}

		// 管理端路由组
		adminHandler := handler.NewAdminHandler(adminService, entitlementService)
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", adminHandler.Login)

			authed := admin.Group("/")
			authed.Use(middleware.AdminAuthMiddleware(jwtManager))
			{
				authed.POST("/promocodes", adminHandler.CreatePromoCode)
				authed.GET("/promocodes", adminHandler.ListPromoCodes)
				authed.GET("/users/list", adminHandler.ListUsers)
				authed.POST("/users/plan", adminHandler.UpdateUserPlan)
			}
		}
	}

	// 9. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
