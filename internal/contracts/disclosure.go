package contracts

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// RawLine is one line item of a filing as returned upstream.
// It lives only for one fetch-normalize cycle.
type RawLine struct {
	AccountID     string `json:"account_id"`
	AccountName   string `json:"account_nm"`
	AccountDetail string `json:"account_detail"`
	CurrentAmount string `json:"thstrm_amount"`
	PriorAmount   string `json:"frmtrm_amount"`
}

// IsSummary reports whether the line is an aggregate row.
// OpenDART marks aggregate rows with "-"; detail breakdowns carry a member path.
func (l RawLine) IsSummary() bool {
	d := strings.TrimSpace(l.AccountDetail)
	return d == "" || d == "-"
}

// FilingStatus distinguishes the non-error outcomes of a filing fetch
type FilingStatus string

const (
	FilingOK     FilingStatus = "000"
	FilingNoData FilingStatus = "013" // 조회된 데이터가 없음
)

// FilingResult is what a filing fetch returns when it did not fail
type FilingResult struct {
	Status FilingStatus
	Lines  []RawLine
}

// Empty reports whether the result carries no usable lines
func (r *FilingResult) Empty() bool {
	return r == nil || r.Status == FilingNoData || len(r.Lines) == 0
}

// ShareCountLine is one row of the issued-share endpoint
type ShareCountLine struct {
	ShareClass string `json:"se"`
	Count      string `json:"istc_totqy"`
}

// DividendRecord is the separately ingested per-share cash dividend
type DividendRecord struct {
	CorpCode string              `json:"corp_code"`
	Year     string              `json:"year"`
	PerShare decimal.NullDecimal `json:"dps"`
}

// FilingSource is the upstream disclosure API.
// An error return means "other error" (retryable); no-data is a FilingResult status.
type FilingSource interface {
	FetchFilingLineItems(ctx context.Context, corpCode, year string, report ReportCode, scope Scope) (*FilingResult, error)
	FetchShareCount(ctx context.Context, corpCode, year string, report ReportCode) ([]ShareCountLine, error)
	FetchDividendRecord(ctx context.Context, corpCode, year string) (*DividendRecord, error)
}
