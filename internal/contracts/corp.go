package contracts

import "context"

// Corp is one listed company of the DART corp code registry
type Corp struct {
	CorpCode   string `json:"corp_code"`
	CorpName   string `json:"corp_name"`
	StockCode  string `json:"stock_code"`
	ModifyDate string `json:"modify_date,omitempty"`
}

// CorpDirectory resolves corp codes against the registry.
// LookupCorp returns (nil, nil) for an unknown code.
type CorpDirectory interface {
	LookupCorp(ctx context.Context, corpCode string) (*Corp, error)
}
