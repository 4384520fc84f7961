package commands

import (
	"github.com/spf13/cobra"
)

var syncFlags requestFlags

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync <corp_code>",
	Short: "강제 동기화",
	Long: `캐시 상태와 관계없이 요청한 모든 연도를 DART에서 다시 가져옵니다.

연도별 스냅샷과 KPI를 덮어쓰고(마지막 쓰기 우선),
해당 기업의 응답 캐시를 무효화합니다.

Example:
  go run ./cmd/dartlens sync 00126380
  go run ./cmd/dartlens sync 00126380 --years-list 2023 --reprt 11011`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInsights(cmd.Context(), syncFlags, args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncFlags.register(syncCmd)
}
