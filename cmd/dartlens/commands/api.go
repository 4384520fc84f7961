package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dartlens/backend/internal/api"
	"github.com/wonny/dartlens/backend/internal/api/handlers"
	"github.com/wonny/dartlens/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 캐시 우선 인사이트 조회 제공
- 강제 동기화 / 매핑 리로드 트리거 제공

Endpoints:
  GET  /health                      - Health check
  GET  /api/insights/{corpCode}     - 인사이트 조회 (캐시 우선)
  POST /api/insights/sync           - 강제 동기화
  GET  /api/corps/search?q=         - 상장사 검색 (이름/종목코드)
  POST /api/admin/mappings/reload   - 계정 매핑 리로드

Example:
  go run ./cmd/dartlens api
  go run ./cmd/dartlens api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT 환경변수)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "스케줄러를 API 프로세스에서 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== DartLens API Server ===")

	// 1~6. Config, logger, database, redis, pipeline
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":  a.cfg.Port,
		"env":   a.cfg.Env,
		"redis": a.rdb.Enabled(),
	}).Info("Initializing API server")

	// 7. Create handlers
	validate := handlers.NewValidator()
	insightsHandler := handlers.NewInsightsHandler(a.insights, validate, a.log)
	mappingsHandler := handlers.NewMappingsHandler(a.registry, a.log)
	corpsHandler := handlers.NewCorpsHandler(a.corps, validate, a.log)

	// 8. Create router
	deps := api.RouterDeps{
		Insights:  insightsHandler,
		Mappings:  mappingsHandler,
		Corps:     corpsHandler,
		Health:    a.db,
		RateLimit: a.cfg.Redis.APIRateLimit,
	}
	if a.rdb.Enabled() {
		deps.Limiter = redis.NewRateLimiter(a.rdb, "dartlens")
	}
	router := api.NewRouter(deps, a.log)

	// 9. Optional in-process scheduler
	if apiWithScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// 10. Create server
	server := api.New(a.cfg, a.log, router)

	// 11. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/insights/{corpCode}")
	fmt.Println("  POST /api/insights/sync")
	fmt.Println("  GET  /api/corps/search")
	fmt.Println("  POST /api/admin/mappings/reload")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
