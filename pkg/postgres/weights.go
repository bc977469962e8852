package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// GetActiveWeights returns the single active weight configuration.
func (d *DB) GetActiveWeights(ctx context.Context) (db.PriorityWeights, error) {
	var w db.PriorityWeights
	err := d.pool.QueryRow(ctx, `
		SELECT impact_weight, frequency_weight, urgency_weight
		FROM priority_weights
		WHERE is_active
	`).Scan(&w.ImpactWeight, &w.FrequencyWeight, &w.UrgencyWeight)
	if noRows(err) {
		return db.PriorityWeights{}, db.ErrNotConfigured
	}
	if err != nil {
		return db.PriorityWeights{}, fmt.Errorf("failed to query active weights: %w", err)
	}
	return w, nil
}

// UpdateActiveWeights replaces the three components of the active
// configuration in one statement, so no reader observes a partial update.
func (d *DB) UpdateActiveWeights(ctx context.Context, w db.PriorityWeights) (db.PriorityWeights, error) {
	var updated db.PriorityWeights
	err := d.pool.QueryRow(ctx, `
		UPDATE priority_weights
		SET impact_weight = $1, frequency_weight = $2, urgency_weight = $3
		WHERE is_active
		RETURNING impact_weight, frequency_weight, urgency_weight
	`, w.ImpactWeight, w.FrequencyWeight, w.UrgencyWeight).
		Scan(&updated.ImpactWeight, &updated.FrequencyWeight, &updated.UrgencyWeight)
	if noRows(err) {
		return db.PriorityWeights{}, db.ErrNotConfigured
	}
	if err != nil {
		return db.PriorityWeights{}, fmt.Errorf("failed to update active weights: %w", err)
	}
	return updated, nil
}

// SeedWeights installs an active configuration when none exists. The partial
// unique index on is_active makes a concurrent double-seed impossible.
func (d *DB) SeedWeights(ctx context.Context, w db.PriorityWeights) (db.PriorityWeights, error) {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO priority_weights (id, impact_weight, frequency_weight, urgency_weight, is_active)
		SELECT $1, $2, $3, $4, TRUE
		WHERE NOT EXISTS (SELECT 1 FROM priority_weights WHERE is_active)
	`, uuid.NewString(), w.ImpactWeight, w.FrequencyWeight, w.UrgencyWeight)
	if err != nil && !isPgCode(err, pgUniqueViolation) {
		return db.PriorityWeights{}, fmt.Errorf("failed to seed weights: %w", err)
	}
	return d.GetActiveWeights(ctx)
}
