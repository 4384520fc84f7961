package dart

import (
	"context"
	"net/url"
)

// Endpoints used by the insights pipeline
const (
	EndpointFinancialStatements = "fnlttSinglAcntAll.json" // 단일회사 전체 재무제표
	EndpointStockTotal          = "stockTotqySttus.json"   // 주식의 총수 현황
	EndpointDividend            = "alotMatter.json"        // 배당에 관한 사항
)

// FinancialItem is one row of fnlttSinglAcntAll
type FinancialItem struct {
	ReceiptNo     string `json:"rcept_no"`
	StatementDiv  string `json:"sj_div"` // BS, IS, CIS, CF, SCE
	StatementName string `json:"sj_nm"`
	AccountID     string `json:"account_id"`
	AccountName   string `json:"account_nm"`
	AccountDetail string `json:"account_detail"`
	CurrentAmount string `json:"thstrm_amount"`
	PriorAmount   string `json:"frmtrm_amount"`
	Order         string `json:"ord"`
	Currency      string `json:"currency"`
}

// StockTotalItem is one row of stockTotqySttus
type StockTotalItem struct {
	ShareClass    string `json:"se"`
	IssuedTotal   string `json:"istc_totqy"` // 발행주식의 총수
	TreasuryStock string `json:"tesstk_co"`  // 자기주식수
	Distributed   string `json:"distb_stock_co"`
	SettlementDt  string `json:"stlm_dt"`
}

// DividendItem is one row of alotMatter
type DividendItem struct {
	Category     string `json:"se"`
	StockKind    string `json:"stock_knd"`
	Current      string `json:"thstrm"`
	Prior        string `json:"frmtrm"`
	BeforePrior  string `json:"lwfr"`
	SettlementDt string `json:"stlm_dt"`
}

// FinancialStatements holds one fnlttSinglAcntAll response
type FinancialStatements struct {
	NoData bool
	Items  []FinancialItem
}

// FetchFinancialStatements fetches the full statement set of one filing
func (c *Client) FetchFinancialStatements(ctx context.Context, corpCode, year, reprtCode, fsDiv string) (*FinancialStatements, error) {
	result, err := fetch[FinancialItem](ctx, c, EndpointFinancialStatements, url.Values{
		"corp_code":  {corpCode},
		"bsns_year":  {year},
		"reprt_code": {reprtCode},
		"fs_div":     {fsDiv},
	})
	if err != nil {
		return nil, err
	}

	return &FinancialStatements{
		NoData: result.Status == StatusNoData,
		Items:  result.List,
	}, nil
}

// FetchStockTotal fetches the share count table; nil when not filed
func (c *Client) FetchStockTotal(ctx context.Context, corpCode, year, reprtCode string) ([]StockTotalItem, error) {
	result, err := fetch[StockTotalItem](ctx, c, EndpointStockTotal, url.Values{
		"corp_code":  {corpCode},
		"bsns_year":  {year},
		"reprt_code": {reprtCode},
	})
	if err != nil {
		return nil, err
	}
	return result.List, nil
}

// FetchDividend fetches the dividend table; nil when not filed
func (c *Client) FetchDividend(ctx context.Context, corpCode, year, reprtCode string) ([]DividendItem, error) {
	result, err := fetch[DividendItem](ctx, c, EndpointDividend, url.Values{
		"corp_code":  {corpCode},
		"bsns_year":  {year},
		"reprt_code": {reprtCode},
	})
	if err != nil {
		return nil, err
	}
	return result.List, nil
}
