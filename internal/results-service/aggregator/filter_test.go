package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

func sample() []dto.ContestResult {
	return []dto.ContestResult{
		{ContestNumber: 2870, DrawDate: "28/05/2025", DrawnNumbers: []string{"04", "10", "23", "25", "42", "58"}},
		{ContestNumber: 2869, DrawDate: "24/05/2025", DrawnNumbers: []string{"01", "10", "13", "33", "44", "55"}},
		{ContestNumber: 2768, DrawDate: "20/05/2024", DrawnNumbers: []string{"05", "25", "30", "36", "47", "60"}},
	}
}

func TestParseNumbers(t *testing.T) {
	assert.Equal(t, []string{"05", "10", "25"}, ParseNumbers(" 5, 10  25 "))
	assert.Empty(t, ParseNumbers("  "))
}

func TestFilter(t *testing.T) {
	cases := []struct {
		name string
		c    Criteria
		want []int
	}{
		{"no criteria", Criteria{}, []int{2870, 2869, 2768}},
		{"contest substring", Criteria{Contest: "286"}, []int{2869}},
		{"date substring", Criteria{Date: "/05/2025"}, []int{2870, 2869}},
		{"every number", Criteria{Numbers: "10,25"}, []int{2870}},
		{"padded number", Criteria{Numbers: "5"}, []int{2768}},
		{"combined", Criteria{Date: "2025", Numbers: "10"}, []int{2870, 2869}},
		{"nothing", Criteria{Numbers: "59"}, []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, numbers(Filter(sample(), tc.c)))
		})
	}
}
