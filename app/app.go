package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abcfe/abcfe-calculator/api/rest"
	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	conf "github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/core"
	"github.com/abcfe/abcfe-calculator/storage"
	"github.com/syndtr/goleveldb/leveldb"
)

// App is a single node local ledger serving JSON-RPC
type App struct {
	stop       chan struct{}
	Conf       conf.Config
	DB         *leveldb.DB // Mutex within db should not be copied
	Ledger     *core.Ledger
	restServer *rest.Server
}

func New(configPath string) (*App, error) {
	cfg, err := conf.NewConfig(configPath)
	if err != nil {
		fmt.Println("Failed to initialized application: ", err)
		return nil, err
	}

	if err := logger.InitLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig builds the app from an already loaded configuration
func NewWithConfig(cfg *conf.Config) (*App, error) {
	db, err := storage.InitDB(cfg)
	if err != nil {
		logger.Error("Failed to load db: ", err)
		return nil, err
	}

	l, err := core.NewLedger(db, cfg)
	if err != nil {
		logger.Error("failed to initialize ledger: ", err)
		db.Close()
		return nil, err
	}

	status := l.GetStatus()
	logger.Info("ledger loaded: slot=", status.Slot, " blockhash=", utils.HashToString(status.Blockhash))
	if status.Faucet != "" {
		logger.Info("faucet: ", status.Faucet)
	}

	return &App{
		stop:       make(chan struct{}),
		Conf:       *cfg,
		DB:         db,
		Ledger:     l,
		restServer: rest.NewServer(cfg, l),
	}, nil
}

// StartAll starts the JSON-RPC server
func (p *App) StartAll() error {
	if err := p.restServer.Start(); err != nil {
		return fmt.Errorf("failed to start JSON-RPC server: %w", err)
	}

	logger.Info("All services started successfully")
	return nil
}

// Cleanup 애플리케이션 정리
func (p *App) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.restServer != nil {
		if err := p.restServer.Stop(ctx); err != nil {
			logger.Error("Error stopping JSON-RPC server:", err)
		}
	}

	// DB 연결 닫기
	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			logger.Error("Error closing DB connection:", err)
		}
	}

	logger.Info("All resources cleaned up")
	logger.Sync()
}

func (p *App) Wait() {
	<-p.stop
}

func (p *App) Terminate() {
	p.Cleanup()
	close(p.stop)
}

func (p *App) SigHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM) // OS 시그널을 채널로 전달
	go func() {
		sig := <-sigCh
		logger.Info("Arrived terminate signal: ", sig)
		p.Terminate()
	}()
}
