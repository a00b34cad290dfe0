package engine

import (
	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

// ApplyCap bounds the reward according to the rule's cap policy and
// reports whether the cap actually bit.
//
// A declared cap of 0 yields a zero reward; suspended promotions are a
// real case and must not be read as "no cap". A negative cap is a data
// error and is ignored as if no cap were declared.
func ApplyCap(rule models.RewardRule, amount, effectivePercentage float64) (reward float64, capped bool) {
	reward = amount * effectivePercentage / 100

	if rule.Cap == nil || *rule.Cap < 0 {
		return reward, false
	}

	switch rule.CapType {
	case models.CapSpending:
		eligible := amount
		if eligible > *rule.Cap {
			eligible = *rule.Cap
			capped = true
		}
		return eligible * effectivePercentage / 100, capped
	default:
		// CapReward is the historical default when a cap is declared
		// without a type.
		if reward > *rule.Cap {
			return *rule.Cap, true
		}
		return reward, false
	}
}
