package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		pattern string
		want    bool
	}{
		{"exact", "field", "field", true},
		{"exact miss", "field", "attr", false},
		{"star matches anything", "whatever", "*", true},
		{"empty pattern is open", "whatever", "", true},
		{"prefix", "validator", "valid*", true},
		{"prefix miss", "view", "valid*", false},
		{"suffix", "maxLength", "*Length", true},
		{"suffix miss", "maxValue", "*Length", false},
		{"middle", "field_string_v2", "field*v2", true},
		{"middle miss", "field_string", "field*v2", false},
		{"empty string vs exact", "", "field", false},
		{"star matches empty", "", "*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPattern(tt.s, tt.pattern))
		})
	}
}
