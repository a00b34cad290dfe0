package engine

import (
	"fmt"
	"sort"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

// ErrUnknownGroup is returned when a ranking group key is not in the
// configured table.
var ErrUnknownGroup = fmt.Errorf("unknown category group")

// overseasGroup is the one group whose leaderboard only admits explicit
// foreign-currency clauses; a base rate never qualifies there.
const overseasGroup = "overseas"

// Rank builds a leaderboard of all cards for one fixed category group,
// rate descending, truncated to limit. Cards whose best rate is zero or
// negative are excluded; so are cards with no qualifying rule.
func (e *Engine) Rank(cards []models.Card, group string, limit int) ([]models.RankedCard, error) {
	tokens, ok := e.cfg.CategoryGroups[group]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}

	foreignOnly := group == overseasGroup

	ranked := make([]models.RankedCard, 0, len(cards))
	for _, card := range cards {
		best, found := bestGroupRule(card, tokens, foreignOnly)
		if !found {
			continue
		}

		rate := best.Percentage
		if best.IsForeignCurrency && card.ForeignCurrencyFee != nil {
			rate -= *card.ForeignCurrencyFee
		}
		if rate <= 0 {
			continue
		}

		ranked = append(ranked, models.RankedCard{
			CardID:          card.ID,
			CardName:        card.Name,
			Bank:            card.Bank,
			Rate:            rate,
			RuleDescription: best.Description,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rate > ranked[j].Rate
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// bestGroupRule runs the scene-style best-rule search restricted to the
// group tokens. When foreignOnly is set only explicit foreign-currency
// clauses qualify.
func bestGroupRule(card models.Card, tokens []string, foreignOnly bool) (models.RewardRule, bool) {
	var best models.RewardRule
	found := false

	for _, rule := range card.Rules {
		if rule.IsDiscount || rule.Percentage < 0 {
			continue
		}
		if foreignOnly && !rule.IsForeignCurrency {
			continue
		}
		if rule.IsForeignCurrency && !foreignOnly {
			continue
		}
		if excludesAny(rule.ExcludeCategories, tokens) {
			continue
		}
		if rule.MatchType != models.MatchBase && !ruleMatchesTokens(rule, tokens) {
			continue
		}
		if !found || rule.Percentage > best.Percentage {
			best = rule
			found = true
		}
	}

	return best, found
}
