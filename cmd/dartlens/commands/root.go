package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dartlens",
	Short: "DartLens - OpenDART 재무 정규화 + KPI 인사이트",
	Long: `DartLens Unified CLI

OpenDART 공시 재무제표를 18개 표준 계정으로 정규화하고
ROE/부채비율/리스크/거버넌스 KPI를 계산해 캐시 우선으로 제공합니다.

Usage:
  go run ./cmd/dartlens [command]

Examples:
  go run ./cmd/dartlens migrate
  go run ./cmd/dartlens mappings seed
  go run ./cmd/dartlens insights 00126380 --years 5
  go run ./cmd/dartlens sync 00126380 --years-list 2022,2023
  go run ./cmd/dartlens api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (LOG_LEVEL=debug)")
}
