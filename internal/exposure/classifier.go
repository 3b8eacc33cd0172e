package exposure

import "strings"

// Rule maps an instrument-label keyword to a cluster. Rules are applied in
// order and the first match wins, so more specific patterns belong first.
type Rule struct {
	Pattern string
	Cluster string
}

// ClusterOther is the fallback cluster for labels no rule matches
const ClusterOther = "other"

// DefaultRules is the built-in taxonomy for prediction-market tickers
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "kxhigh", Cluster: "weather"},
		{Pattern: "temp", Cluster: "weather"},
		{Pattern: "rain", Cluster: "weather"},
		{Pattern: "snow", Cluster: "weather"},
		{Pattern: "weather", Cluster: "weather"},
		{Pattern: "btc", Cluster: "crypto"},
		{Pattern: "eth", Cluster: "crypto"},
		{Pattern: "sol", Cluster: "crypto"},
		{Pattern: "doge", Cluster: "crypto"},
		{Pattern: "crypto", Cluster: "crypto"},
		{Pattern: "fed", Cluster: "economics"},
		{Pattern: "cpi", Cluster: "economics"},
		{Pattern: "gdp", Cluster: "economics"},
		{Pattern: "inflation", Cluster: "economics"},
		{Pattern: "payroll", Cluster: "economics"},
		{Pattern: "econ", Cluster: "economics"},
		{Pattern: "nfl", Cluster: "sports"},
		{Pattern: "nba", Cluster: "sports"},
		{Pattern: "mlb", Cluster: "sports"},
		{Pattern: "nhl", Cluster: "sports"},
		{Pattern: "ncaa", Cluster: "sports"},
		{Pattern: "ufc", Cluster: "sports"},
	}
}

// Classifier assigns instrument labels to clusters with an ordered rule table.
// The taxonomy is data, injected at construction, so it can be tested and
// extended independently of the aggregation logic.
type Classifier struct {
	rules    []Rule
	fallback string
}

// NewClassifier creates a classifier from an ordered rule table
func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: rules, fallback: ClusterOther}
}

// Classify maps an instrument label to its cluster. Matching is
// case-insensitive substring containment; first matching rule wins.
func (c *Classifier) Classify(label string) string {
	needle := strings.ToLower(label)
	for _, r := range c.rules {
		if strings.Contains(needle, r.Pattern) {
			return r.Cluster
		}
	}
	return c.fallback
}
