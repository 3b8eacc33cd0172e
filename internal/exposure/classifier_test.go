package exposure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDefaultRules(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tests := []struct {
		label   string
		cluster string
	}{
		{"KXHIGHNY-26SEP01", "weather"},
		{"KXRAINCHI-26SEP", "weather"},
		{"KXBTCD-26AUG31", "crypto"},
		{"kxethd-26aug31", "crypto"},
		{"FED-26SEP-HIKE", "economics"},
		{"CPI-26SEP-ABOVE3", "economics"},
		{"NFL-26SEP-BUF-WIN", "sports"},
		{"KXUFCFIGHT-26SEP", "sports"},
		{"ZQZ-UNKNOWN-26DEC", ClusterOther},
		{"", ClusterOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.cluster, c.Classify(tt.label), "label %q", tt.label)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := NewClassifier([]Rule{
		{Pattern: "btc", Cluster: "first"},
		{Pattern: "btc", Cluster: "second"},
	})

	assert.Equal(t, "first", c.Classify("KXBTCD"))
}

func TestClassifyEmptyRuleTable(t *testing.T) {
	c := NewClassifier(nil)
	assert.Equal(t, ClusterOther, c.Classify("KXBTCD"))
}
