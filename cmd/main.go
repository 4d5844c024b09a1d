package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/meegol/SIC-Gambling/config"
	"github.com/meegol/SIC-Gambling/internal/auth"
	"github.com/meegol/SIC-Gambling/internal/game/holdem"
	"github.com/meegol/SIC-Gambling/internal/game/manager"
	"github.com/meegol/SIC-Gambling/internal/lobby"
	"github.com/meegol/SIC-Gambling/internal/middleware"
	"github.com/meegol/SIC-Gambling/internal/storage"
	"github.com/meegol/SIC-Gambling/internal/utils"
	"github.com/meegol/SIC-Gambling/internal/websocket"
)

var CLI struct {
	Config   string `short:"c" default:"config/config.yaml" help:"Path to YAML configuration file"`
	Addr     string `short:"a" help:"Listen address (overrides server.port)"`
	LogLevel string `short:"l" help:"Log level (overrides log.level)"`
}

func gameConfig(c config.Config) manager.Config {
	cfg := manager.DefaultConfig()
	cfg.IdleTTL = c.Game.RoomIdleTTL
	cfg.ReapInterval = c.Game.ReapInterval

	cfg.Roulette.StartingBalance = c.Game.StartingBalance
	cfg.Roulette.SpinDelay = c.Roulette.SpinDelay
	cfg.Roulette.ResultsDelay = c.Roulette.ResultsDelay
	cfg.Roulette.AutoSpinAfter = c.Roulette.AutoSpinAfter
	cfg.Roulette.MaxSeats = c.Roulette.MaxSeats

	cfg.Blackjack.StartingBalance = c.Game.StartingBalance
	cfg.Blackjack.DealerDelay = c.Blackjack.DealerDelay
	cfg.Blackjack.ResultsDelay = c.Blackjack.ResultsDelay
	cfg.Blackjack.MaxSeats = c.Blackjack.MaxSeats

	cfg.Holdem.StartingBalance = c.Game.StartingBalance
	cfg.Holdem.SmallBlind = c.Holdem.SmallBlind
	cfg.Holdem.BigBlind = c.Holdem.BigBlind
	cfg.Holdem.ResultsDelay = c.Holdem.ResultsDelay
	cfg.Holdem.MaxSeats = c.Holdem.MaxSeats
	cfg.Holdem.Showdown = holdem.ShowdownMode(c.Holdem.Showdown)

	cfg.InBetween.StartingBalance = c.Game.StartingBalance
	cfg.InBetween.ResultsDelay = c.InBetween.ResultsDelay
	cfg.InBetween.MaxSeats = c.InBetween.MaxSeats
	cfg.InBetween.CarryPot = c.InBetween.CarryPot
	return cfg
}

func main() {
	kctx := kong.Parse(&CLI)

	if err := config.Load(CLI.Config); err != nil {
		utils.Log.Error("config", "err", err)
		kctx.Exit(1)
	}
	if CLI.Addr != "" {
		config.C.Server.Port = CLI.Addr
	}
	if CLI.LogLevel != "" {
		config.C.Log.Level = CLI.LogLevel
	}
	logger := utils.Init(config.C.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//-------------------------------------------------------
	// 1. 大厅目录：配置了 Redis 就用 Redis，否则用内存
	//-------------------------------------------------------
	repo := lobby.NewMemoryRepo()
	if config.C.Redis.Addr != "" {
		rdb, err := storage.NewRedis(ctx, config.C.Redis.Addr, config.C.Redis.Password, config.C.Redis.DB)
		if err != nil {
			logger.Fatal("Redis init failed", "err", err)
		}
		defer rdb.Close()
		repo = lobby.NewRedisRepo(rdb)
	}
	// 存活房间每个回收周期重新发布一次，TTL 留出三个周期的余量
	lobbySvc := lobby.NewService(repo, 3*config.C.Game.ReapInterval, logger)

	//-------------------------------------------------------
	// 2. 初始化 Hub 与 GameManager
	//-------------------------------------------------------
	hub := websocket.NewHub(logger)
	gameMgr := manager.NewGameManager(hub, gameConfig(config.C), manager.Options{
		Logger:    logger,
		Directory: lobbySvc,
	})
	hub.OnIncoming = gameMgr.HandlePlayerMessage
	hub.OnDisconnect = gameMgr.HandleDisconnect

	//-------------------------------------------------------
	// 3. 初始化 Gin + CORS
	//-------------------------------------------------------
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": hub.Count()})
	})

	secret := []byte(config.C.JWT.Secret)
	authHandler := auth.NewHandler(secret)
	r.POST("/auth/guest", authHandler.Guest)

	lh := lobby.NewHandler(lobbySvc, gameMgr)
	r.GET("/rooms", lh.List)
	r.GET("/rooms/:game/:code", lh.Get)

	r.GET("/ws", middleware.JwtAuthMiddleware(secret, config.C.JWT.Required), websocket.ServeWS(hub))

	srv := &http.Server{
		Addr:              config.C.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	//-------------------------------------------------------
	// 4. 启动服务器，收到信号后依次关闭
	//-------------------------------------------------------
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run()
		return nil
	})
	g.Go(func() error { return gameMgr.Run(gctx) })
	g.Go(func() error { return lobbySvc.Run(gctx) })
	g.Go(func() error {
		logger.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		gameMgr.Close()
		hub.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "err", err)
		kctx.Exit(1)
	}
}
