package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{
			name: "drops stop words and short tokens",
			text: "What causes low pressure?",
			want: []string{"causes", "low", "pressure"},
		},
		{
			name: "strips punctuation and lowercases",
			text: "Boiler-Pressure, RELIEF valve!!",
			want: []string{"boiler", "pressure", "relief", "valve"},
		},
		{
			name: "deduplicates in order",
			text: "valve Valve VALVE seal valve",
			want: []string{"valve", "seal"},
		},
		{
			name: "caps at max",
			text: "alpha bravo charlie delta echo foxtrot golf",
			max:  3,
			want: []string{"alpha", "bravo", "charlie"},
		},
		{
			name: "default cap",
			text: "alpha bravo charlie delta echo foxtrot golf",
			want: []string{"alpha", "bravo", "charlie", "delta", "echo"},
		},
		{
			name: "counts runes not bytes",
			text: "été ça naïve",
			want: []string{"été", "naïve"},
		},
		{
			name: "only stop words",
			text: "what is the",
			want: nil,
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.text, tt.max))
		})
	}
}
