package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/dartlens/backend/pkg/config"
	"github.com/wonny/dartlens/backend/pkg/database"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

var migrateDownSteps int

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 마이그레이션",
	Long: `임베디드 마이그레이션을 적용합니다.

Example:
  go run ./cmd/dartlens migrate
  go run ./cmd/dartlens migrate down --steps 1`,
	RunE: runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "마이그레이션 롤백",
	RunE:  runMigrateDown,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "롤백할 단계 수")
}

// openDatabase connects without running the full bootstrap
func openDatabase(cmd *cobra.Command) (*database.DB, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	db, err := database.New(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, log, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	db, log, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.Migrate(log)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	if status.Applied {
		PrintSuccess(fmt.Sprintf("migrated to version %d", status.Version))
	} else {
		PrintSuccess(fmt.Sprintf("schema already at version %d", status.Version))
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	if migrateDownSteps < 1 {
		return fmt.Errorf("--steps must be positive")
	}

	db, log, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.MigrateDown(log, migrateDownSteps); err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("rolled back %d step(s)", migrateDownSteps))
	return nil
}
