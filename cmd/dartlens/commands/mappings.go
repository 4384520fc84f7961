package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/dartlens/backend/internal/normalize"
)

// mappingsCmd represents the mappings command
var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "계정 매핑 관리",
	Long: `정규화에 사용하는 계정 매핑(참조 데이터)을 관리합니다.

Subcommands:
  seed  - 내장 기본 매핑을 DB에 적재 (upsert)
  list  - 현재 적용 중인 매핑 출력

Example:
  go run ./cmd/dartlens mappings seed
  go run ./cmd/dartlens mappings list`,
}

var (
	mappingsSeedCmd = &cobra.Command{
		Use:   "seed",
		Short: "기본 매핑 적재",
		RunE:  runMappingsSeed,
	}

	mappingsListCmd = &cobra.Command{
		Use:   "list",
		Short: "적용 중인 매핑 출력",
		RunE:  runMappingsList,
	}
)

func init() {
	rootCmd.AddCommand(mappingsCmd)
	mappingsCmd.AddCommand(mappingsSeedCmd)
	mappingsCmd.AddCommand(mappingsListCmd)
}

func runMappingsSeed(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	defaults, err := normalize.DefaultMappings()
	if err != nil {
		return fmt.Errorf("load default mappings: %w", err)
	}

	n, err := a.mappings.UpsertMappings(cmd.Context(), defaults)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("seeded %d account mappings", n))
	return nil
}

func runMappingsList(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.registry.All(cmd.Context())
	if err != nil {
		PrintError(err.Error())
		return err
	}

	widths := []int{24, 44, 20, 30}
	PrintTableHeader([]string{"Key", "Taxonomy", "Name", "Aliases"}, widths)
	for _, m := range rows {
		PrintTableRow([]string{
			string(m.Key),
			m.TaxonomyID,
			m.PrimaryName,
			strings.Join(m.Aliases, ", "),
		}, widths)
	}
	fmt.Printf("\n%d mappings\n", len(rows))
	return nil
}
