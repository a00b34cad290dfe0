package engine

import (
	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

// IsApplicable reports whether a rule is a candidate for the given
// transaction context. Pure function of its two inputs.
//
// Rules with malformed shape (a non-base type without match values)
// fail closed: they are never applicable rather than raising.
func IsApplicable(rule models.RewardRule, ctx models.TransactionContext) bool {
	// Exclusion list disqualifies regardless of match type.
	for _, cat := range ctx.Merchant.CategoryIDs {
		if rule.ExcludeCategories.Contains(cat) {
			return false
		}
	}

	// Foreign-currency clauses only apply to foreign-currency spend.
	if rule.IsForeignCurrency && !ctx.ForeignCurrency {
		return false
	}

	if rule.Percentage < 0 {
		return false
	}

	switch rule.MatchType {
	case models.MatchBase:
		return true
	case models.MatchCategory:
		for _, cat := range ctx.Merchant.CategoryIDs {
			if rule.MatchValues.Contains(cat) {
				return true
			}
		}
		return false
	case models.MatchMerchant:
		return ctx.Merchant.ID != "" && rule.MatchValues.Contains(ctx.Merchant.ID)
	case models.MatchPaymentMethod:
		return ctx.PaymentMethod != "" && rule.MatchValues.Contains(ctx.PaymentMethod)
	default:
		// Unknown match type fails closed.
		return false
	}
}
