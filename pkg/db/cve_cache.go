package db

import (
	"encoding/json"
	"time"

	"golang.org/x/xerrors"
)

// CVECacheEntry is a CVE API response for one CPE.
type CVECacheEntry struct {
	FetchedAt time.Time       `json:"fetchedAt"`
	Response  json.RawMessage `json:"response"`
}

func (dbc Config) PutCVECache(cpe string, entry CVECacheEntry) error {
	if err := dbc.update(cveBucket, "cpe", cpe, entry); err != nil {
		return xerrors.Errorf("failed to cache CVEs of %s: %w", cpe, err)
	}
	return nil
}

// GetCVECache reports false when nothing is cached for the CPE.
func (dbc Config) GetCVECache(cpe string) (CVECacheEntry, bool, error) {
	value, err := dbc.get(cveBucket, "cpe", cpe)
	if err != nil {
		return CVECacheEntry{}, false, xerrors.Errorf("failed to get cached CVEs of %s: %w", cpe, err)
	} else if value == nil {
		return CVECacheEntry{}, false, nil
	}

	var entry CVECacheEntry
	if err = json.Unmarshal(value, &entry); err != nil {
		return CVECacheEntry{}, false, xerrors.Errorf("failed to unmarshal cached CVEs of %s: %w", cpe, err)
	}
	return entry, true, nil
}
