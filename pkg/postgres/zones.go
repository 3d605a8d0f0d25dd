package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/plakatpatruljen/fieldops/pkg/core/geo"
)

// GetCampaignZones retrieves the assignment zones of a campaign
func (db *DB) GetCampaignZones(ctx context.Context, campaignID string) ([]geo.Zone, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, name, geojson
		FROM zones
		WHERE campaign_id = $1
		ORDER BY name
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	var zones []geo.Zone
	for rows.Next() {
		var (
			z   geo.Zone
			raw []byte
		)
		if err := rows.Scan(&z.ID, &z.Name, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		if err := json.Unmarshal(raw, &z.GeoJSON); err != nil {
			return nil, fmt.Errorf("failed to decode zone geometry %s: %w", z.ID, err)
		}
		zones = append(zones, z)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating zones: %w", err)
	}
	return zones, nil
}
