package contracts

import (
	"fmt"
	"strings"
)

// ReportCode identifies one periodic filing variant on OpenDART
type ReportCode string

const (
	ReportAnnual ReportCode = "11011" // 사업보고서
	ReportHalf   ReportCode = "11012" // 반기보고서
	ReportQ1     ReportCode = "11013" // 1분기보고서
	ReportQ3     ReportCode = "11014" // 3분기보고서
)

// ReportAuto asks the selector to walk ReportPriority
const ReportAuto = "auto"

// ReportPriority is the fallback order, most complete filing first
// ⭐ SSOT: 보고서 우선순위는 여기서만 정의
var ReportPriority = []ReportCode{ReportAnnual, ReportQ3, ReportHalf, ReportQ1}

// Label returns a human readable name
func (r ReportCode) Label() string {
	switch r {
	case ReportAnnual:
		return "annual"
	case ReportHalf:
		return "half"
	case ReportQ1:
		return "q1"
	case ReportQ3:
		return "q3"
	default:
		return string(r)
	}
}

// ParseReportCode validates an explicit report code
func ParseReportCode(s string) (ReportCode, error) {
	code := ReportCode(strings.TrimSpace(s))
	for _, known := range ReportPriority {
		if code == known {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown report code %q", s)
}

// ReportVariant is either ReportAuto or one explicit ReportCode
type ReportVariant string

// IsAuto reports whether the variant walks the priority list
func (v ReportVariant) IsAuto() bool {
	return v == "" || strings.EqualFold(string(v), ReportAuto)
}

// ParseReportVariant accepts "auto", "" or a known report code
func ParseReportVariant(s string) (ReportVariant, error) {
	if ReportVariant(s).IsAuto() {
		return ReportAuto, nil
	}
	code, err := ParseReportCode(s)
	if err != nil {
		return "", err
	}
	return ReportVariant(code), nil
}

// Candidates returns the report codes this variant may be served from
func (v ReportVariant) Candidates() []ReportCode {
	if v.IsAuto() {
		return ReportPriority
	}
	return []ReportCode{ReportCode(v)}
}

// Scope is the consolidation scope of a filing
type Scope string

const (
	ScopeConsolidated Scope = "CFS" // 연결
	ScopeSeparate     Scope = "OFS" // 별도
)

// ParseScope validates a consolidation scope, case-insensitively
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToUpper(strings.TrimSpace(s))) {
	case ScopeConsolidated:
		return ScopeConsolidated, nil
	case ScopeSeparate:
		return ScopeSeparate, nil
	default:
		return "", fmt.Errorf("unknown consolidation scope %q", s)
	}
}

// SnapshotKey identifies one persisted snapshot / KPI row
type SnapshotKey struct {
	CorpCode string     `json:"corp_code"`
	Year     string     `json:"year"`
	Report   ReportCode `json:"reprt_code"`
	Scope    Scope      `json:"fs_div"`
}

func (k SnapshotKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.CorpCode, k.Year, k.Report, k.Scope)
}
