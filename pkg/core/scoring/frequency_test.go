package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

func TestDeriveFrequencyScore(t *testing.T) {
	tests := []struct {
		name  string
		count float64
		unit  db.FrequencyUnit
		want  int
	}{
		{"several times a day", 3, db.FrequencyPerDay, 5},
		{"once a day", 1, db.FrequencyPerDay, 4},
		{"fraction of a day rounds up to daily", 0.5, db.FrequencyPerDay, 4},
		{"once a week", 1, db.FrequencyPerWeek, 3},
		{"twice a week", 2, db.FrequencyPerWeek, 3},
		{"less than weekly falls back", 0.5, db.FrequencyPerWeek, 1},
		{"four times a month", 4, db.FrequencyPerMonth, 4},
		{"six times a month", 6, db.FrequencyPerMonth, 4},
		{"twice a month", 2, db.FrequencyPerMonth, 2},
		{"three times a month", 3, db.FrequencyPerMonth, 2},
		{"once a month", 1, db.FrequencyPerMonth, 1},
		{"less than monthly", 0.5, db.FrequencyPerMonth, 1},
		{"unknown unit", 10, db.FrequencyUnit("year"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveFrequencyScore(tt.count, tt.unit))
		})
	}
}
