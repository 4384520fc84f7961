package insights

import (
	"github.com/wonny/dartlens/backend/internal/contracts"
)

// Source tells whether a response was served purely from cache
const (
	SourceCache = "cache"
	SourceSync  = "sync"
)

// Response is the assembled, year-ordered insights payload.
// Every requested year has an entry, even when nothing is known about it.
type Response struct {
	CorpCode  string                  `json:"corp_code"`
	CorpName  string                  `json:"corp_name,omitempty"`
	Scope     contracts.Scope         `json:"fs_div"`
	Variant   contracts.ReportVariant `json:"reprt"`
	Source    string                  `json:"source"`
	SyncRunID string                  `json:"sync_run_id,omitempty"`
	Years     []YearInsight           `json:"years"`
}

// YearInsight is one fiscal year. Money is rendered as decimal strings.
type YearInsight struct {
	Year          string                           `json:"year"`
	ReportCode    *contracts.ReportCode            `json:"reprt_code"`
	Accounts      map[contracts.AccountKey]*string `json:"accounts"`
	IssuedShares  *string                          `json:"issued_shares"`
	BasicEPS      *string                          `json:"basic_eps"`
	MatchRate     *float64                         `json:"match_rate"`
	MissingFields []contracts.AccountKey           `json:"missing_fields"`
	Kpis          contracts.KpiSet                 `json:"kpis"`
}

// emptyYear is the all-null shape served for a year without data
func emptyYear(year string) YearInsight {
	accounts := make(map[contracts.AccountKey]*string, len(contracts.AccountKeys))
	for _, k := range contracts.AccountKeys {
		accounts[k] = nil
	}
	return YearInsight{
		Year:          year,
		Accounts:      accounts,
		MissingFields: []contracts.AccountKey{},
	}
}

func yearInsight(year string, rec *contracts.YearRecord) YearInsight {
	out := emptyYear(year)
	if rec == nil || rec.Snapshot == nil {
		return out
	}

	snap := rec.Snapshot
	report := snap.Key.Report
	out.ReportCode = &report
	for _, k := range contracts.AccountKeys {
		if v := snap.Amount(k); v != nil {
			s := v.String()
			out.Accounts[k] = &s
		}
	}
	if snap.IssuedShares != nil {
		s := snap.IssuedShares.String()
		out.IssuedShares = &s
	}
	if snap.BasicEPS.Valid {
		s := snap.BasicEPS.Decimal.String()
		out.BasicEPS = &s
	}
	rate := snap.MatchRate
	out.MatchRate = &rate
	if snap.MissingFields != nil {
		out.MissingFields = snap.MissingFields
	}
	if rec.Kpi != nil {
		out.Kpis = *rec.Kpi
	}
	return out
}
