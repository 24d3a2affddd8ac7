package service

import "testing"

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		name       string
		countries  []string
		popularity float64
		want       float64
	}{
		{"korean drama outranks western", []string{"KR"}, 20, 120},
		{"western baseline", []string{"US"}, 20, 40},
		{"best country wins", []string{"US", "KR"}, 0, 100},
		{"unknown country gets default weight", []string{"ZZ"}, 10, 40},
		{"no countries still defaults", nil, 10, 40},
		{"popularity adds on top", []string{"TH"}, 5.5, 85.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriorityScore(tt.countries, tt.popularity)
			if got != tt.want {
				t.Errorf("PriorityScore(%v, %v) = %v, want %v", tt.countries, tt.popularity, got, tt.want)
			}
		})
	}
}
