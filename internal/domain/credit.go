package domain

import "strings"

type CreditCategory string

const (
	CreditStandard CreditCategory = "STANDARD"
	CreditPremium  CreditCategory = "PREMIUM"
	CreditRetake   CreditCategory = "RETAKE"

	// CreditAdminOverride is a sentinel recorded on bookings created through
	// the administrator override path. It never appears in the ledger and is
	// never decremented.
	CreditAdminOverride CreditCategory = "ADMIN_OVERRIDE"
)

// creditAliases maps free-form spreadsheet text to a canonical category.
// Lookups are lowercased and trimmed first.
var creditAliases = map[string]CreditCategory{
	"standard": CreditStandard,
	"std":      CreditStandard,
	"regular":  CreditStandard,
	"basic":    CreditStandard,
	"premium":  CreditPremium,
	"prem":     CreditPremium,
	"priority": CreditPremium,
	"retake":   CreditRetake,
	"resit":    CreditRetake,
	"re-take":  CreditRetake,
	"re-sit":   CreditRetake,
}

// ResolveCreditCategory maps free text from a bulk import row to a ledger
// category. The override sentinel is deliberately not resolvable from text.
func ResolveCreditCategory(text string) (CreditCategory, bool) {
	c, ok := creditAliases[strings.ToLower(strings.TrimSpace(text))]
	return c, ok
}

// LedgerCategories lists the categories that carry balances.
func LedgerCategories() []CreditCategory {
	return []CreditCategory{CreditStandard, CreditPremium, CreditRetake}
}
