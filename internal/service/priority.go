package service

// countryWeights ranks origin countries by how underrepresented the
// catalog's target markets are; globally saturated markets score lowest.
var countryWeights = map[string]float64{
	"KR": 10,
	"CN": 9, "TW": 9, "HK": 9,
	"TH": 8,
	"TR": 7,
	"JP": 6,
	"IN": 4,
	"US": 2, "GB": 2, "CA": 2, "AU": 2,
	"FR": 2, "DE": 2, "ES": 2, "IT": 2,
	"BR": 2, "MX": 2,
	"PH": 1, "ID": 1, "VN": 1, "MY": 1,
}

const defaultCountryWeight = 3.0

// PriorityScore ranks a record for backfill: provider popularity plus a
// regional boost from its best-weighted origin country. Higher drains
// first.
func PriorityScore(countries []string, popularity float64) float64 {
	best := 0.0
	for _, c := range countries {
		w, ok := countryWeights[c]
		if !ok {
			w = defaultCountryWeight
		}
		if w > best {
			best = w
		}
	}
	if best == 0 {
		best = defaultCountryWeight
	}
	return popularity + best*10
}
