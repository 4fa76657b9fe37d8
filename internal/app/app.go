package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rewards_backend/internal/config"
	"rewards_backend/internal/controller"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service"
	"rewards_backend/pkg/configwatcher"
	"rewards_backend/pkg/database"
	"rewards_backend/pkg/logger"
	"rewards_backend/pkg/monitoring"
	"rewards_backend/pkg/security"
	"rewards_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	repos *repositories
}

type repositories struct {
	user    *repository.UserRepository
	game    *repository.GameRepository
	checkin *repository.CheckinRepository
	pool    *repository.CodePoolRepository
	balance *repository.BalanceRepository
	clock   *repository.ClockRepository
	legacy  *repository.LegacyRepository
}

type services struct {
	auth      *service.AuthService
	clock     *service.ClockService
	pools     *service.CodePoolService
	coins     *service.CoinService
	checkin   *service.CheckinService
	migration *service.MigrationService
	notify    *service.NotifyService
}

type controllers struct {
	auth    *controller.AuthController
	checkin *controller.CheckinController
	coupon  *controller.CouponController
	balance *controller.BalanceController
	admin   *controller.AdminController
	health  *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:    repository.NewUserRepository(db),
		game:    repository.NewGameRepository(db),
		checkin: repository.NewCheckinRepository(db),
		pool:    repository.NewCodePoolRepository(db),
		balance: repository.NewBalanceRepository(db),
		clock:   repository.NewClockRepository(db),
		legacy:  repository.NewLegacyRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	clock, err := service.NewClockService(repos.clock, cfg)
	if err != nil {
		return nil, err
	}
	s.clock = clock

	s.auth = service.NewAuthService(repos.user, cfg)
	s.notify = service.NewNotifyService(rdb)
	s.pools = service.NewCodePoolService(repos.pool, cfg)
	s.coins = service.NewCoinService(repos.balance, cfg)
	s.checkin = service.NewCheckinService(repos.game, repos.checkin, s.pools, s.coins, s.clock, s.notify, cfg)
	s.migration = service.NewMigrationService(repos.legacy, repos.checkin, cfg)

	return s, nil
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		checkin: controller.NewCheckinController(s.checkin),
		coupon:  controller.NewCouponController(s.checkin, repos.game),
		balance: controller.NewBalanceController(s.coins, s.notify),
		admin:   controller.NewAdminController(repos.game, repos.pool, s.migration),
		health:  controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定期把各码池的剩余量刷进指标，并监听配置文件变更
func (a *App) startBackgroundTasks() {
	// JWT密钥轮换无需重启：认证中间件每次请求都从同一份配置读密钥
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		a.Config.JWT = newCfg.JWT
		logger.Log.Info("config reloaded")
	})

	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			pools, err := a.repos.pool.ListPools(context.Background())
			if err != nil {
				logger.Log.Error("pool metrics refresh error", zap.Error(err))
				continue
			}
			for i := range pools {
				p := &pools[i]
				monitoring.CodesRemaining.WithLabelValues(p.GameID, p.SlotID).Set(float64(p.Remaining()))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	app.repos = repos

	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
		log.Fatalf("Failed to initialize services: %v", err)
	}
	controllers := app.initControllers(services, repos, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("rewards-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

// 编译期保证gorm仓库满足服务层的存储接口
var (
	_ service.CheckinStore  = (*repository.CheckinRepository)(nil)
	_ service.CodePoolStore = (*repository.CodePoolRepository)(nil)
	_ service.BalanceStore  = (*repository.BalanceRepository)(nil)
	_ service.GameStore     = (*repository.GameRepository)(nil)
	_ service.ClockStore    = (*repository.ClockRepository)(nil)
	_ service.LegacyStore   = (*repository.LegacyRepository)(nil)
)
