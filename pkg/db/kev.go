package db

import (
	"encoding/json"
	"time"

	"golang.org/x/xerrors"
)

// KnownExploited is the stored snapshot of the CISA catalog.
type KnownExploited struct {
	CatalogVersion string    `json:"catalogVersion"`
	UpdatedAt      time.Time `json:"updatedAt"`
	CVEIDs         []string  `json:"cveIDs"`
}

// PutKnownExploited replaces the stored catalog.
func (dbc Config) PutKnownExploited(kev KnownExploited) error {
	if err := dbc.deleteBucket(kevBucket); err != nil {
		return xerrors.Errorf("failed to clear known exploited catalog: %w", err)
	}
	if err := dbc.update(kevBucket, "catalog", "data", kev); err != nil {
		return xerrors.Errorf("failed to save known exploited catalog: %w", err)
	}
	return nil
}

// GetKnownExploited returns the zero value when sync has not stored a catalog yet.
func (dbc Config) GetKnownExploited() (KnownExploited, error) {
	value, err := dbc.get(kevBucket, "catalog", "data")
	if err != nil {
		return KnownExploited{}, xerrors.Errorf("failed to get known exploited catalog: %w", err)
	} else if value == nil {
		return KnownExploited{}, nil
	}

	var kev KnownExploited
	if err = json.Unmarshal(value, &kev); err != nil {
		return KnownExploited{}, xerrors.Errorf("failed to unmarshal known exploited catalog: %w", err)
	}
	return kev, nil
}
