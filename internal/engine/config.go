package engine

// Scene is one fixed spending context a card is rated against,
// independent of any single transaction.
type Scene struct {
	Key             string
	Icon            string
	Tokens          []string
	ForeignCurrency bool
}

// StarThreshold maps a minimum net rate (inclusive) to a star rating.
type StarThreshold struct {
	MinRate float64
	Stars   int
}

// Config holds the policy constants the engine depends on but does not
// own. It is injected at construction so tests can substitute fixtures.
type Config struct {
	// MilesValuation is the cash value of one percent of miles
	// earn-rate relative to one percent of cash rebate. Used only for
	// ranking when the caller prefers miles; reported rates never change.
	MilesValuation float64

	Scenes          []Scene
	CategoryGroups  map[string][]string
	StarThresholds  []StarThreshold
	MaxSceneRatings int
}

// DefaultConfig returns the production policy constants.
func DefaultConfig() Config {
	return Config{
		MilesValuation:  1.5,
		MaxSceneRatings: 4,
		Scenes: []Scene{
			{Key: "overseas", Icon: "✈️", Tokens: []string{"海外", "國外", "overseas", "foreign"}, ForeignCurrency: true},
			{Key: "online", Icon: "🛒", Tokens: []string{"網購", "線上", "網路", "online"}},
			{Key: "dining", Icon: "🍜", Tokens: []string{"餐飲", "餐廳", "美食", "dining"}},
			{Key: "transport", Icon: "🚇", Tokens: []string{"交通", "捷運", "加油", "transport"}},
			{Key: "supermarket", Icon: "🛍️", Tokens: []string{"超市", "量販", "supermarket"}},
			{Key: "japan", Icon: "🗾", Tokens: []string{"日本", "日系", "japan"}, ForeignCurrency: true},
		},
		CategoryGroups: map[string][]string{
			"dining":      {"餐飲", "餐廳", "美食", "dining"},
			"online":      {"網購", "線上", "網路", "online"},
			"overseas":    {"海外", "國外", "overseas", "foreign"},
			"mobile_pay":  {"行動支付", "mobile", "apple pay", "line pay"},
			"transport":   {"交通", "捷運", "加油", "transport"},
			"supermarket": {"超市", "量販", "supermarket"},
			"streaming":   {"串流", "影音", "streaming"},
			"travel":      {"旅遊", "訂房", "travel"},
		},
		// Inclusive lower bounds, checked in order.
		StarThresholds: []StarThreshold{
			{MinRate: 5, Stars: 5},
			{MinRate: 3, Stars: 4},
			{MinRate: 1.5, Stars: 3},
			{MinRate: 0.5, Stars: 2},
		},
	}
}

// stars maps a net rate to a 1-5 star rating using the configured
// thresholds. Rates below every threshold get one star.
func (c Config) stars(rate float64) int {
	for _, t := range c.StarThresholds {
		if rate >= t.MinRate {
			return t.Stars
		}
	}
	return 1
}
