package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateCalculationRequest rejects clearly invalid top-level
// arguments before the engine runs. Shape irregularities inside
// individual cards are deliberately not checked here; the engine fails
// closed per rule so one bad card never aborts ranking of the rest.
func ValidateCalculationRequest(req models.CalculationRequest) error {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return &ValidationError{Field: "amount", Message: "must be a finite number"}
	}

	if req.Amount <= 0 {
		return &ValidationError{Field: "amount", Message: "must be positive"}
	}

	maxAmount := 100_000_000.0
	if req.Amount > maxAmount {
		return &ValidationError{Field: "amount", Message: "exceeds maximum allowed amount"}
	}

	if req.Merchant.ID == "" && len(req.Merchant.CategoryIDs) == 0 {
		return &ValidationError{Field: "merchant", Message: "requires an id or at least one category"}
	}

	switch req.RewardPreference {
	case "", models.PreferCash, models.PreferMiles:
	default:
		return &ValidationError{Field: "reward_preference", Message: "must be 'cash' or 'miles'"}
	}

	return nil
}

// ValidateCard checks a catalog record before it is stored. A stored
// card may still carry rules the engine treats as never-applicable;
// only shapes that would corrupt the catalog are rejected.
func ValidateCard(card models.Card) error {
	if card.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}

	if card.Bank == "" {
		return &ValidationError{Field: "bank", Message: "is required"}
	}

	if len(card.Rules) > 100 {
		return &ValidationError{
			Field:   "rules",
			Message: "cannot contain more than 100 rules",
		}
	}

	switch card.RewardType {
	case "", models.RewardCash, models.RewardMiles:
	default:
		return &ValidationError{Field: "reward_type", Message: "must be 'cash' or 'miles'"}
	}

	if card.ForeignCurrencyFee != nil && *card.ForeignCurrencyFee < 0 {
		return &ValidationError{Field: "foreign_currency_fee", Message: "must be non-negative"}
	}

	for i, rule := range card.Rules {
		if err := validateRule(rule); err != nil {
			return &ValidationError{
				Field:   fmt.Sprintf("rules[%d]", i),
				Message: err.Error(),
			}
		}
	}

	return nil
}

func validateRule(rule models.RewardRule) error {
	switch rule.MatchType {
	case models.MatchBase, models.MatchCategory, models.MatchMerchant, models.MatchPaymentMethod:
	default:
		return &ValidationError{Field: "match_type", Message: "is not a recognized match type"}
	}

	if rule.MatchType != models.MatchBase && len(rule.MatchValues) == 0 {
		return &ValidationError{Field: "match_values", Message: "are required for non-base rules"}
	}

	if rule.Percentage < 0 {
		return &ValidationError{Field: "percentage", Message: "must be non-negative"}
	}

	if rule.Cap != nil && *rule.Cap < 0 {
		return &ValidationError{Field: "cap", Message: "must be non-negative"}
	}

	if rule.Cap != nil {
		switch rule.CapType {
		case "", models.CapReward, models.CapSpending:
		default:
			return &ValidationError{Field: "cap_type", Message: "must be 'reward' or 'spending'"}
		}
	}

	switch rule.CapPeriod {
	case "", models.PeriodMonthly, models.PeriodQuarterly, models.PeriodSemiAnnual,
		models.PeriodAnnual, models.PeriodPromo:
	default:
		return &ValidationError{Field: "cap_period", Message: "is not a recognized period"}
	}

	return nil
}

// SanitizeString strips control characters and trims whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// SanitizeCard sanitizes all free-text fields of a card in place.
func SanitizeCard(card *models.Card) {
	card.ID = SanitizeString(card.ID)
	card.Name = SanitizeString(card.Name)
	card.Bank = SanitizeString(card.Bank)
	card.Style = SanitizeString(card.Style)
	for i := range card.Rules {
		card.Rules[i].Description = SanitizeString(card.Rules[i].Description)
		for j := range card.Rules[i].MatchValues {
			card.Rules[i].MatchValues[j] = SanitizeString(card.Rules[i].MatchValues[j])
		}
	}
}
