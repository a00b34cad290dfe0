package engine

import (
	"sort"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

// Engine evaluates card reward programs against transaction contexts.
// It is pure and stateless: every method is a deterministic function of
// its inputs and the injected policy config, with no shared mutable
// state, so a single Engine may be used concurrently without
// coordination.
type Engine struct {
	cfg Config
}

// New creates an engine with the given policy config.
func New(cfg Config) *Engine {
	if cfg.MaxSceneRatings <= 0 {
		cfg.MaxSceneRatings = 4
	}
	return &Engine{cfg: cfg}
}

// CalculateRebate ranks the catalog by the monetary benefit each card
// would yield for the transaction. Cards with no applicable rule are
// omitted entirely. An empty catalog yields an empty result list.
//
// Results sort descending by ranking value, ties broken by descending
// effective percentage, further ties preserve catalog order so
// identical inputs always produce identical output.
func (e *Engine) CalculateRebate(cards []models.Card, ctx models.TransactionContext) []models.CalculationResult {
	type ranked struct {
		result models.CalculationResult
		value  float64
	}

	entries := make([]ranked, 0, len(cards))
	for _, card := range cards {
		res := Resolve(card, ctx)
		if res == nil {
			continue
		}

		reward, capped := ApplyCap(res.Rule, ctx.Amount, res.EffectivePercentage)

		entries = append(entries, ranked{
			result: models.CalculationResult{
				CardID:          card.ID,
				CardName:        card.Name,
				Bank:            card.Bank,
				TotalPercentage: res.EffectivePercentage,
				TotalReward:     reward,
				RuleDescription: res.Rule.Description,
				MatchType:       res.Rule.MatchType,
				Capped:          capped,
				ForeignCurrency: res.Rule.IsForeignCurrency,
				Discounts:       applicableDiscounts(card, ctx),
			},
			value: e.rankingValue(card, reward, ctx.RewardPreference),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].result.TotalPercentage > entries[j].result.TotalPercentage
	})

	results := make([]models.CalculationResult, len(entries))
	for i, entry := range entries {
		results[i] = entry.result
	}
	return results
}

// rankingValue is the internal sort key for one result. When the caller
// prefers miles, mile-denominated programs are re-valued by the miles
// valuation constant; the reported percentage and reward never change,
// only the ordering. Kept as a single conversion point so the policy
// can be swapped without touching matching or capping.
func (e *Engine) rankingValue(card models.Card, reward float64, preference string) float64 {
	if preference == models.PreferMiles && card.RewardType == models.RewardMiles && e.cfg.MilesValuation > 0 {
		return reward * e.cfg.MilesValuation
	}
	return reward
}

// applicableDiscounts collects the descriptions of discount-only
// clauses that match the context. They are informational and never
// summed into the reward rate.
func applicableDiscounts(card models.Card, ctx models.TransactionContext) []string {
	var descs []string
	for _, rule := range card.Rules {
		if rule.IsDiscount && IsApplicable(rule, ctx) {
			descs = append(descs, rule.Description)
		}
	}
	return descs
}
