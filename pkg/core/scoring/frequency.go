package scoring

import "github.com/OSPRERA-Gerencia/SGPD/pkg/db"

// DeriveFrequencyScore buckets a structured frequency ("count times per
// unit") into the 1-5 frequency score:
//
//	>1 per day  -> 5
//	 1 per day  -> 4
//	>=1 per week -> 3
//	>=4 per month -> 4
//	>=2 per month -> 2
//	>=1 per month -> 1
//
// Anything else, including sub-weekly frequencies expressed as fractional
// week counts, falls back to 1. The function is total; it never fails.
func DeriveFrequencyScore(count float64, unit db.FrequencyUnit) int {
	switch unit {
	case db.FrequencyPerDay:
		if count > 1 {
			return 5
		}
		return 4
	case db.FrequencyPerWeek:
		if count >= 1 {
			return 3
		}
	case db.FrequencyPerMonth:
		switch {
		case count >= 4:
			return 4
		case count >= 2:
			return 2
		case count >= 1:
			return 1
		}
	}
	return 1
}
