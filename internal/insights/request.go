package insights

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

// ErrInvalidRequest marks caller mistakes (bad corp code, year, report or scope)
var ErrInvalidRequest = errors.New("invalid insights request")

// ErrCorpNotFound marks a well-formed corp code that is not in the registry
var ErrCorpNotFound = fmt.Errorf("%w: corp not found", ErrInvalidRequest)

const (
	// MinYears / MaxYears bound a year-count request
	MinYears = 1
	MaxYears = 10
)

var corpCodePattern = regexp.MustCompile(`^[0-9]{8}$`)

// Request describes which years of which company to serve.
// Years wins over YearCount when both are set.
type Request struct {
	CorpCode  string
	YearCount int
	Years     []string
	Variant   contracts.ReportVariant
	Scope     contracts.Scope
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// normalize validates the request and fills defaults
func (r Request) normalize(defaultScope contracts.Scope) (Request, error) {
	r.CorpCode = strings.TrimSpace(r.CorpCode)
	if !corpCodePattern.MatchString(r.CorpCode) {
		return r, invalid("corp code must be 8 digits, got %q", r.CorpCode)
	}

	variant, err := contracts.ParseReportVariant(string(r.Variant))
	if err != nil {
		return r, invalid("%v", err)
	}
	r.Variant = variant

	if r.Scope == "" {
		r.Scope = defaultScope
	}
	scope, err := contracts.ParseScope(string(r.Scope))
	if err != nil {
		return r, invalid("%v", err)
	}
	r.Scope = scope

	return r, nil
}

// LatestFiscalYear is the most recent fiscal year expected to have filings.
// Annual reports land by the end of March, so January ~ March still points at last year.
func LatestFiscalYear(now time.Time) int {
	if now.Month() <= time.March {
		return now.Year() - 1
	}
	return now.Year()
}

// ResolveYears turns a request into a sorted, deduplicated list of fiscal years
func ResolveYears(r Request, defaultCount int, now time.Time) ([]string, error) {
	if len(r.Years) > 0 {
		return explicitYears(r.Years)
	}

	n := r.YearCount
	if n == 0 {
		n = defaultCount
	}
	if n < MinYears {
		n = MinYears
	}
	if n > MaxYears {
		n = MaxYears
	}

	latest := LatestFiscalYear(now)
	years := make([]string, 0, n)
	for y := latest - n + 1; y <= latest; y++ {
		years = append(years, strconv.Itoa(y))
	}
	return years, nil
}

func explicitYears(raw []string) ([]string, error) {
	seen := make(map[int]bool, len(raw))
	var ys []int
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		y, err := strconv.Atoi(s)
		if err != nil || len(s) != 4 {
			return nil, invalid("year %q is not a 4-digit number", s)
		}
		if !seen[y] {
			seen[y] = true
			ys = append(ys, y)
		}
	}
	if len(ys) == 0 {
		return nil, invalid("years list is empty")
	}
	if len(ys) > MaxYears {
		return nil, invalid("at most %d years per request, got %d", MaxYears, len(ys))
	}

	sort.Ints(ys)
	out := make([]string, len(ys))
	for i, y := range ys {
		out[i] = strconv.Itoa(y)
	}
	return out, nil
}

// ParseYearsList splits "2021,2022" style query values
func ParseYearsList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
