package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// corpsCmd represents the corps command
var corpsCmd = &cobra.Command{
	Use:   "corps",
	Short: "상장사 레지스트리 관리",
	Long: `OpenDART corpCode.xml 기반 상장사 레지스트리를 관리합니다.

Subcommands:
  sync    - corpCode.xml을 내려받아 상장사 목록 교체 (종목코드 6자리만)
  search  - 회사명/고유번호/종목코드로 검색

Example:
  go run ./cmd/dartlens corps sync
  go run ./cmd/dartlens corps search 삼성 --limit 10`,
}

var (
	corpsSyncCmd = &cobra.Command{
		Use:   "sync",
		Short: "상장사 목록 동기화",
		RunE:  runCorpsSync,
	}

	corpsSearchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "상장사 검색",
		Args:  cobra.ExactArgs(1),
		RunE:  runCorpsSearch,
	}

	corpsSearchLimit int
)

func init() {
	rootCmd.AddCommand(corpsCmd)
	corpsCmd.AddCommand(corpsSyncCmd)
	corpsCmd.AddCommand(corpsSearchCmd)

	corpsSearchCmd.Flags().IntVar(&corpsSearchLimit, "limit", 20, "최대 결과 수 (1-50)")
}

func runCorpsSync(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	corps, err := a.source.ListedCorps(cmd.Context())
	if err != nil {
		PrintError(err.Error())
		return err
	}
	if len(corps) == 0 {
		err := errors.New("corpCode.xml contained no listed companies")
		PrintError(err.Error())
		return err
	}

	written, removed, err := a.corps.ReplaceCorps(cmd.Context(), corps)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("synced %d listed companies (%d delisted removed)", written, removed))
	return nil
}

func runCorpsSearch(cmd *cobra.Command, args []string) error {
	if corpsSearchLimit < 1 || corpsSearchLimit > 50 {
		return fmt.Errorf("--limit must be between 1 and 50, got %d", corpsSearchLimit)
	}

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	corps, err := a.corps.SearchCorps(cmd.Context(), args[0], corpsSearchLimit)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	widths := []int{10, 8, 30}
	PrintTableHeader([]string{"Corp", "Stock", "Name"}, widths)
	for _, c := range corps {
		PrintTableRow([]string{c.CorpCode, c.StockCode, c.CorpName}, widths)
	}
	fmt.Printf("\n%d companies\n", len(corps))
	return nil
}
