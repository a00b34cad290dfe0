package models

import (
	"encoding/json"
	"fmt"
)

// MatchType identifies which attribute of a transaction a rule is
// compared against.
type MatchType string

const (
	MatchBase          MatchType = "base"
	MatchCategory      MatchType = "category"
	MatchMerchant      MatchType = "merchant"
	MatchPaymentMethod MatchType = "payment_method"
)

// CapType identifies what a rule's cap bounds.
type CapType string

const (
	// CapReward bounds the payout amount directly.
	CapReward CapType = "reward"
	// CapSpending bounds the spending base before the rate is applied.
	CapSpending CapType = "spending"
)

// CapPeriod is declarative metadata; the single-transaction engine keeps
// no cross-transaction usage ledger and never enforces it.
type CapPeriod string

const (
	PeriodMonthly    CapPeriod = "monthly"
	PeriodQuarterly  CapPeriod = "quarterly"
	PeriodSemiAnnual CapPeriod = "semi_annual"
	PeriodAnnual     CapPeriod = "annual"
	PeriodPromo      CapPeriod = "promo"
)

// RewardType identifies the currency a card's program pays out in.
type RewardType string

const (
	RewardCash  RewardType = "cash"
	RewardMiles RewardType = "miles"
)

// Reward preferences accepted on a calculation request.
const (
	PreferCash  = "cash"
	PreferMiles = "miles"
)

// StringList accepts either a single JSON string or an array of strings
// and normalizes both into an ordered slice. Upstream catalog data uses
// both shapes for rule match values.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*s = nil
			return nil
		}
		*s = StringList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("must be a string or an array of strings")
	}
	*s = StringList(many)
	return nil
}

// Contains reports whether the list contains the exact value.
func (s StringList) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// RewardRule is one clause of a card's reward program.
type RewardRule struct {
	Description       string     `json:"description"`
	MatchType         MatchType  `json:"match_type"`
	MatchValues       StringList `json:"match_values,omitempty"` // required for non-base types
	Percentage        float64    `json:"percentage"`
	IsDiscount        bool       `json:"is_discount,omitempty"`
	IsForeignCurrency bool       `json:"is_foreign_currency,omitempty"`
	ExcludeCategories StringList `json:"exclude_categories,omitempty"`
	Cap               *float64   `json:"cap,omitempty"` // explicit 0 means zero reward, not "no cap"
	CapType           CapType    `json:"cap_type,omitempty"`
	CapPeriod         CapPeriod  `json:"cap_period,omitempty"`
	MonthlyMinSpend   *float64   `json:"monthly_min_spend,omitempty"` // declared metadata, not enforced
}

// Card is one credit card and its reward program.
type Card struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Bank               string       `json:"bank"`
	Rules              []RewardRule `json:"rules"`
	Style              string       `json:"style,omitempty"`
	RewardType         RewardType   `json:"reward_type,omitempty"`
	ForeignCurrencyFee *float64     `json:"foreign_currency_fee,omitempty"` // percent
	ImageURL           string       `json:"image_url,omitempty"`
	ApplyURL           string       `json:"apply_url,omitempty"`
}

// Merchant describes where a transaction takes place.
type Merchant struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CategoryIDs []string `json:"category_ids"`
}

// TransactionContext is the immutable input to a single-transaction
// calculation. The engine never mutates it.
type TransactionContext struct {
	Merchant         Merchant `json:"merchant"`
	Amount           float64  `json:"amount"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	RewardPreference string   `json:"reward_preference,omitempty"` // "cash" or "miles"
	ForeignCurrency  bool     `json:"foreign_currency,omitempty"`
}

// CalculationRequest is the service-level request for a rebate
// comparison. Cards may be supplied inline; when empty, the stored
// catalog is used.
type CalculationRequest struct {
	Cards            []Card   `json:"cards,omitempty"`
	Merchant         Merchant `json:"merchant"`
	Amount           float64  `json:"amount"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	RewardPreference string   `json:"reward_preference,omitempty"`
	ForeignCurrency  bool     `json:"foreign_currency,omitempty"`
}

// Context returns the engine-facing transaction context of the request.
func (r CalculationRequest) Context() TransactionContext {
	return TransactionContext{
		Merchant:         r.Merchant,
		Amount:           r.Amount,
		PaymentMethod:    r.PaymentMethod,
		RewardPreference: r.RewardPreference,
		ForeignCurrency:  r.ForeignCurrency,
	}
}

// CalculationResult is one card's outcome for one transaction, with
// enough provenance to render an explanation.
type CalculationResult struct {
	CardID          string    `json:"card_id"`
	CardName        string    `json:"card_name"`
	Bank            string    `json:"bank"`
	TotalPercentage float64   `json:"total_percentage"` // effective net rate actually applied
	TotalReward     float64   `json:"total_reward"`     // payout after cap
	RuleDescription string    `json:"rule_description"`
	MatchType       MatchType `json:"match_type"`
	Capped          bool      `json:"capped"`
	ForeignCurrency bool      `json:"foreign_currency,omitempty"`
	Discounts       []string  `json:"discounts,omitempty"` // applicable discount-only clauses, informational
}

// CalculationResponse is the response payload for a rebate comparison.
type CalculationResponse struct {
	Results []CalculationResult `json:"results"`
}

// SceneRating rates one card for one fixed spending scene.
type SceneRating struct {
	Scene  string  `json:"scene"`
	Icon   string  `json:"icon,omitempty"`
	Rating int     `json:"rating"` // 1-5
	Rate   float64 `json:"rate"`   // net percentage
	Note   string  `json:"note,omitempty"`
}

// SceneRatingsResponse is the response payload for scene ratings.
type SceneRatingsResponse struct {
	CardID  string        `json:"card_id"`
	Ratings []SceneRating `json:"ratings"`
}

// RankedCard is one leaderboard entry for a category group.
type RankedCard struct {
	CardID          string  `json:"card_id"`
	CardName        string  `json:"card_name"`
	Bank            string  `json:"bank"`
	Rate            float64 `json:"rate"`
	RuleDescription string  `json:"rule_description"`
}

// RankingResponse is the response payload for a category leaderboard.
type RankingResponse struct {
	Group   string       `json:"group"`
	Results []RankedCard `json:"results"`
}

// CardListResponse is the response payload when listing the catalog.
type CardListResponse struct {
	Cards []Card `json:"cards"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
