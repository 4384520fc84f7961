package dart

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

// 배당 표에서 보통주 주당 현금배당금 행
const (
	dividendCashPerShare = "주당 현금배당금(원)"
	commonStock          = "보통주"
)

// Source adapts Client to contracts.FilingSource
type Source struct {
	client *Client
}

// NewSource wraps a client
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

var _ contracts.FilingSource = (*Source)(nil)

// FetchFilingLineItems returns the statement lines of one filing
func (s *Source) FetchFilingLineItems(ctx context.Context, corpCode, year string, report contracts.ReportCode, scope contracts.Scope) (*contracts.FilingResult, error) {
	fs, err := s.client.FetchFinancialStatements(ctx, corpCode, year, string(report), string(scope))
	if err != nil {
		return nil, err
	}
	if fs.NoData {
		return &contracts.FilingResult{Status: contracts.FilingNoData}, nil
	}

	lines := make([]contracts.RawLine, 0, len(fs.Items))
	for _, item := range fs.Items {
		lines = append(lines, contracts.RawLine{
			AccountID:     item.AccountID,
			AccountName:   item.AccountName,
			AccountDetail: item.AccountDetail,
			CurrentAmount: item.CurrentAmount,
			PriorAmount:   item.PriorAmount,
		})
	}
	return &contracts.FilingResult{Status: contracts.FilingOK, Lines: lines}, nil
}

// FetchShareCount returns the share-count rows of one filing
func (s *Source) FetchShareCount(ctx context.Context, corpCode, year string, report contracts.ReportCode) ([]contracts.ShareCountLine, error) {
	items, err := s.client.FetchStockTotal(ctx, corpCode, year, string(report))
	if err != nil {
		return nil, err
	}

	rows := make([]contracts.ShareCountLine, 0, len(items))
	for _, item := range items {
		rows = append(rows, contracts.ShareCountLine{
			ShareClass: item.ShareClass,
			Count:      item.IssuedTotal,
		})
	}
	return rows, nil
}

// FetchDividendRecord reads the common-stock cash dividend per share from
// the annual report. A year without a dividend row yields a null amount.
func (s *Source) FetchDividendRecord(ctx context.Context, corpCode, year string) (*contracts.DividendRecord, error) {
	items, err := s.client.FetchDividend(ctx, corpCode, year, string(contracts.ReportAnnual))
	if err != nil {
		return nil, err
	}

	return &contracts.DividendRecord{
		CorpCode: corpCode,
		Year:     year,
		PerShare: DividendPerShare(items),
	}, nil
}

// DividendPerShare picks the common-stock cash dividend per share
func DividendPerShare(items []DividendItem) decimal.NullDecimal {
	for _, item := range items {
		if strings.TrimSpace(item.Category) != dividendCashPerShare {
			continue
		}
		kind := strings.TrimSpace(item.StockKind)
		if kind != "" && kind != commonStock {
			continue
		}

		raw := strings.TrimSpace(strings.ReplaceAll(item.Current, ",", ""))
		if raw == "" || raw == "-" {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	}
	return decimal.NullDecimal{}
}

var (
	corpCodeFormat  = regexp.MustCompile(`^[0-9]{8}$`)
	stockCodeFormat = regexp.MustCompile(`^[0-9]{6}$`)
)

// ListedCorps returns the listed companies of the corp code registry, sorted by name.
// 상장사만 채택: 6자리 종목코드가 있는 항목
func (s *Source) ListedCorps(ctx context.Context) ([]contracts.Corp, error) {
	items, err := s.client.FetchCorpCodes(ctx)
	if err != nil {
		return nil, err
	}
	return listedCorps(items), nil
}

func listedCorps(items []CorpCodeItem) []contracts.Corp {
	out := make([]contracts.Corp, 0, len(items))
	for _, it := range items {
		c := contracts.Corp{
			CorpCode:   strings.TrimSpace(it.CorpCode),
			CorpName:   strings.TrimSpace(it.CorpName),
			StockCode:  strings.TrimSpace(it.StockCode),
			ModifyDate: strings.TrimSpace(it.ModifyDate),
		}
		if c.CorpName == "" || !corpCodeFormat.MatchString(c.CorpCode) || !stockCodeFormat.MatchString(c.StockCode) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CorpName != out[j].CorpName {
			return out[i].CorpName < out[j].CorpName
		}
		return out[i].CorpCode < out[j].CorpCode
	})
	return out
}
