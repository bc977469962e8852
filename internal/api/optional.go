package api

import (
	"encoding/json"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/scoring"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// jsonOptional is a tri-state JSON field: absent (Set false), explicit null
// (Set true, Value nil) or a value (Set true, Value non-nil).
type jsonOptional[T any] struct {
	Set   bool
	Value *T
}

func (o *jsonOptional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// override translates the tri-state into the service layer's double-pointer
// convention: nil leaves the stored value unchanged, an inner nil clears it.
func (o jsonOptional[T]) override() **T {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

func scoringTotalPoints(p *db.Project) (int, bool) {
	if p.DevelopmentPoints == nil && p.FunctionalPoints == nil && p.UserPoints == nil {
		return 0, false
	}
	total := 0
	for _, v := range []*int{p.DevelopmentPoints, p.FunctionalPoints, p.UserPoints} {
		if v != nil {
			total += *v
		}
	}
	return total, true
}

func scoringEstimatedTime(p *db.Project) string {
	total, ok := scoringTotalPoints(p)
	if !ok {
		return scoring.EstimatedTimeLabel(0)
	}
	return scoring.EstimatedTimeLabel(float64(total))
}
