package contracts

// AccountKey is one of the fixed normalized target accounts
type AccountKey string

const (
	AccountRevenue               AccountKey = "REVENUE"
	AccountOperatingProfit       AccountKey = "OPERATING_PROFIT"
	AccountNetIncome             AccountKey = "NET_INCOME"
	AccountTotalAssets           AccountKey = "TOTAL_ASSETS"
	AccountTotalLiabilities      AccountKey = "TOTAL_LIABILITIES"
	AccountTotalEquity           AccountKey = "TOTAL_EQUITY"
	AccountCurrentAssets         AccountKey = "CURRENT_ASSETS"
	AccountCurrentLiabilities    AccountKey = "CURRENT_LIABILITIES"
	AccountNonCurrentAssets      AccountKey = "NON_CURRENT_ASSETS"
	AccountNonCurrentLiabilities AccountKey = "NON_CURRENT_LIABILITIES"
	AccountInventory             AccountKey = "INVENTORY"
	AccountAccountsReceivable    AccountKey = "ACCOUNTS_RECEIVABLE"
	AccountAccountsPayable       AccountKey = "ACCOUNTS_PAYABLE"
	AccountCash                  AccountKey = "CASH"
	AccountOperatingCashFlow     AccountKey = "OPERATING_CASH_FLOW"
	AccountInvestingCashFlow     AccountKey = "INVESTING_CASH_FLOW"
	AccountFinancingCashFlow     AccountKey = "FINANCING_CASH_FLOW"
	AccountDepreciation          AccountKey = "DEPRECIATION"
)

// AccountKeys is the canonical list of normalized accounts.
// ⭐ SSOT: 정규화 대상 계정 목록은 여기서만 정의 (coverage 검사도 이 목록 기준)
var AccountKeys = []AccountKey{
	AccountRevenue,
	AccountOperatingProfit,
	AccountNetIncome,
	AccountTotalAssets,
	AccountTotalLiabilities,
	AccountTotalEquity,
	AccountCurrentAssets,
	AccountCurrentLiabilities,
	AccountNonCurrentAssets,
	AccountNonCurrentLiabilities,
	AccountInventory,
	AccountAccountsReceivable,
	AccountAccountsPayable,
	AccountCash,
	AccountOperatingCashFlow,
	AccountInvestingCashFlow,
	AccountFinancingCashFlow,
	AccountDepreciation,
}

// IsAccountKey reports whether k is one of AccountKeys
func IsAccountKey(k AccountKey) bool {
	for _, known := range AccountKeys {
		if k == known {
			return true
		}
	}
	return false
}

// AccountMapping is the reference row used to resolve one AccountKey
type AccountMapping struct {
	Key         AccountKey `json:"normalized_key" yaml:"key"`
	TaxonomyID  string     `json:"xbrl_account_id" yaml:"taxonomy_id"`
	PrimaryName string     `json:"primary_kr_name" yaml:"primary_name"`
	Aliases     []string   `json:"aliases" yaml:"aliases"`
	Category    string     `json:"category" yaml:"category"`
}

// MaxAliases is the number of alias columns a mapping row carries
const MaxAliases = 3
