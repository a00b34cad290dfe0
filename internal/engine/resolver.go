package engine

import (
	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

// Resolution is the outcome of picking the governing rule for one card
// in one transaction context.
type Resolution struct {
	Rule models.RewardRule
	// EffectivePercentage is the rule's rate net of the card's
	// foreign-currency fee when the winning rule is a foreign-currency
	// clause. May be zero or negative.
	EffectivePercentage float64
}

// specificity orders match types for tie-breaking: a merchant-specific
// clause beats a category clause at the same rate, and so on down to
// the base fallback.
var specificity = map[models.MatchType]int{
	models.MatchMerchant:      3,
	models.MatchCategory:      2,
	models.MatchPaymentMethod: 1,
	models.MatchBase:          0,
}

// Resolve picks the governing non-discount rule for the card and
// computes its effective percentage. Returns nil when no rule applies;
// the card is then excluded from the result set, not zero-valued.
//
// Selection is maximum percentage first. More specific programs are
// designed to exceed the base rate, so maximum-wins matches
// most-specific-wins without an explicit priority field, and it is
// robust to overlapping category rules at different rates. True ties
// fall back to specificity (merchant > category > payment method >
// base); remaining ties keep the first-listed rule.
func Resolve(card models.Card, ctx models.TransactionContext) *Resolution {
	var best *models.RewardRule
	for i := range card.Rules {
		rule := &card.Rules[i]
		if rule.IsDiscount {
			// Discount clauses never enter reward-rate aggregation;
			// they are surfaced separately as discount information.
			continue
		}
		if !IsApplicable(*rule, ctx) {
			continue
		}
		if best == nil {
			best = rule
			continue
		}
		if rule.Percentage > best.Percentage {
			best = rule
			continue
		}
		if rule.Percentage == best.Percentage &&
			specificity[rule.MatchType] > specificity[best.MatchType] {
			best = rule
		}
	}

	if best == nil {
		return nil
	}

	effective := best.Percentage
	if best.IsForeignCurrency && card.ForeignCurrencyFee != nil {
		// Net rate; may go negative, which signals the card is a poor
		// choice for this spend. Callers still surface it so it ranks
		// at the bottom rather than silently disappearing.
		effective -= *card.ForeignCurrencyFee
	}

	return &Resolution{Rule: *best, EffectivePercentage: effective}
}
