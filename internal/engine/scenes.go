package engine

import (
	"sort"
	"strings"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

// SceneRatings evaluates one card against the configured spending
// scenes and returns at most the top MaxSceneRatings entries by rating
// descending.
//
// Scene matching is looser than transaction matching: rule match values
// and scene tokens compare substring-tolerant and case-insensitive in
// both directions, because catalog descriptions and scene vocabulary
// come from different editors.
func (e *Engine) SceneRatings(card models.Card) []models.SceneRating {
	ratings := make([]models.SceneRating, 0, len(e.cfg.Scenes))

	for _, scene := range e.cfg.Scenes {
		rate, found := bestSceneRate(card, scene)
		if !found {
			// No rule at all, not even a base fallback: the card has
			// nothing to say about this scene.
			continue
		}

		note := ""
		if scene.ForeignCurrency && card.ForeignCurrencyFee != nil {
			rate -= *card.ForeignCurrencyFee
			note = "net of foreign transaction fee"
		}

		ratings = append(ratings, models.SceneRating{
			Scene:  scene.Key,
			Icon:   scene.Icon,
			Rating: e.cfg.stars(rate),
			Rate:   rate,
			Note:   note,
		})
	}

	sort.SliceStable(ratings, func(i, j int) bool {
		return ratings[i].Rating > ratings[j].Rating
	})

	if len(ratings) > e.cfg.MaxSceneRatings {
		ratings = ratings[:e.cfg.MaxSceneRatings]
	}
	return ratings
}

// bestSceneRate finds the highest non-discount rate the card offers for
// the scene, falling back to the card's base rate when no specific rule
// matches. The second return is false when the card has no applicable
// rule at all.
func bestSceneRate(card models.Card, scene Scene) (float64, bool) {
	best := 0.0
	found := false

	for _, rule := range card.Rules {
		if rule.IsDiscount || rule.Percentage < 0 {
			continue
		}
		// Foreign-currency clauses only count toward foreign scenes.
		if rule.IsForeignCurrency && !scene.ForeignCurrency {
			continue
		}
		if excludesAny(rule.ExcludeCategories, scene.Tokens) {
			continue
		}

		// Base qualifies for every scene as the fallback floor;
		// anything else must overlap the scene vocabulary.
		if rule.MatchType != models.MatchBase && !ruleMatchesTokens(rule, scene.Tokens) {
			continue
		}
		if !found || rule.Percentage > best {
			best = rule.Percentage
			found = true
		}
	}

	return best, found
}

// ruleMatchesTokens reports whether any rule match value and any scene
// token overlap, substring-tolerant and case-insensitive both ways.
func ruleMatchesTokens(rule models.RewardRule, tokens []string) bool {
	for _, value := range rule.MatchValues {
		for _, token := range tokens {
			if tokenMatch(value, token) {
				return true
			}
		}
	}
	return false
}

// excludesAny reports whether any excluded category overlaps the scene
// tokens.
func excludesAny(excluded models.StringList, tokens []string) bool {
	for _, ex := range excluded {
		for _, token := range tokens {
			if tokenMatch(ex, token) {
				return true
			}
		}
	}
	return false
}

func tokenMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
