package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/internal/insights"
)

// requestFlags are shared by the insights and sync commands
type requestFlags struct {
	years     int
	yearsList string
	report    string
	scope     string
	asJSON    bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.years, "years", 0, "최근 N개 사업연도 (기본: SYNC_DEFAULT_YEARS)")
	cmd.Flags().StringVar(&f.yearsList, "years-list", "", "명시적 사업연도 목록 (예: 2021,2022,2023)")
	cmd.Flags().StringVar(&f.report, "reprt", "auto", "보고서 코드 (auto, 11011, 11012, 11013, 11014)")
	cmd.Flags().StringVar(&f.scope, "fs", "", "재무제표 구분 (CFS, OFS)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "JSON으로 출력")
}

func (f *requestFlags) request(corpCode string) insights.Request {
	return insights.Request{
		CorpCode:  corpCode,
		YearCount: f.years,
		Years:     insights.ParseYearsList(f.yearsList),
		Variant:   contracts.ReportVariant(f.report),
		Scope:     contracts.Scope(f.scope),
	}
}

var insightsFlags requestFlags

// insightsCmd represents the insights command
var insightsCmd = &cobra.Command{
	Use:   "insights <corp_code>",
	Short: "인사이트 조회 (캐시 우선)",
	Long: `기업의 연도별 정규화 재무 + KPI를 조회합니다.

캐시가 완전한 연도는 DART를 호출하지 않고,
누락된 연도만 동기화한 뒤 결과를 반환합니다.

Example:
  go run ./cmd/dartlens insights 00126380
  go run ./cmd/dartlens insights 00126380 --years 3 --fs OFS
  go run ./cmd/dartlens insights 00126380 --years-list 2022,2023 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInsights(cmd.Context(), insightsFlags, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	insightsFlags.register(insightsCmd)
}

func runInsights(ctx context.Context, flags requestFlags, corpCode string, force bool) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req := flags.request(corpCode)

	var resp *insights.Response
	if force {
		resp, err = a.insights.ForceSync(ctx, req)
	} else {
		resp, err = a.insights.GetInsights(ctx, req)
	}
	if err != nil {
		PrintError(err.Error())
		return err
	}

	if flags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(resp)
	return nil
}

func printResponse(resp *insights.Response) {
	corp := resp.CorpCode
	if resp.CorpName != "" {
		corp = fmt.Sprintf("%s (%s)", resp.CorpName, resp.CorpCode)
	}
	PrintHeader("DartLens Insights", [][2]string{
		{"Corp", corp},
		{"Scope", string(resp.Scope)},
		{"Report", string(resp.Variant)},
		{"Source", resp.Source},
	})

	columns := []string{"Year", "Reprt", "Match", "ROE", "Debt", "OpMargin", "Growth", "EPS", "Risk", "Gov", "DPS"}
	widths := []int{6, 6, 6, 8, 8, 9, 8, 10, 5, 5, 8}
	PrintTableHeader(columns, widths)

	for _, y := range resp.Years {
		reprt := "-"
		if y.ReportCode != nil {
			reprt = y.ReportCode.Label()
		}
		k := y.Kpis
		PrintTableRow([]string{
			y.Year,
			reprt,
			floatOrDash(y.MatchRate, "%.2f"),
			floatOrDash(k.ROE, "%.2f"),
			floatOrDash(k.DebtRatio, "%.1f"),
			floatOrDash(k.OperatingMargin, "%.2f"),
			floatOrDash(k.RevenueGrowth, "%.2f"),
			floatOrDash(k.EPS, "%.0f"),
			intOrDash(k.RiskScore),
			floatOrDash(k.GovernanceScore, "%.0f"),
			floatOrDash(k.DividendPerShare, "%.0f"),
		}, widths)
	}
	PrintSeparator()

	for _, y := range resp.Years {
		if len(y.MissingFields) == 0 {
			continue
		}
		missing := make([]string, 0, len(y.MissingFields))
		for _, k := range y.MissingFields {
			missing = append(missing, string(k))
		}
		fmt.Printf("  %s missing (%d): %v\n", y.Year, len(missing), missing)
	}
	fmt.Println()
}
