package db_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vulner/pkg/db"
	"github.com/aquasecurity/vulner/pkg/dbtest"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		wantErr bool
	}{
		{
			name: "no db",
		},
		{
			name:    "broken db",
			content: []byte("broken"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.content != nil {
				dbPath := db.Path(tmpDir)
				require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0700))
				require.NoError(t, os.WriteFile(dbPath, tt.content, 0600))
			}

			err := db.Init(tmpDir)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, db.Close())
		})
	}
}

func TestConfig_KnownExploited(t *testing.T) {
	dbDir := dbtest.InitDB(t)
	dbc := db.Config{}

	t.Run("nothing stored", func(t *testing.T) {
		got, err := dbc.GetKnownExploited()
		require.NoError(t, err)
		assert.Empty(t, got.CVEIDs)
	})

	first := db.KnownExploited{
		CatalogVersion: "2022.01.21",
		UpdatedAt:      time.Date(2022, 1, 22, 0, 0, 0, 0, time.UTC),
		CVEIDs:         []string{"CVE-2021-27104", "CVE-2021-44228"},
	}
	second := db.KnownExploited{
		CatalogVersion: "2022.01.24",
		UpdatedAt:      time.Date(2022, 1, 25, 0, 0, 0, 0, time.UTC),
		CVEIDs:         []string{"CVE-2021-44228"},
	}

	t.Run("replace", func(t *testing.T) {
		require.NoError(t, dbc.PutKnownExploited(first))
		require.NoError(t, dbc.PutKnownExploited(second))

		got, err := dbc.GetKnownExploited()
		require.NoError(t, err)
		assert.Equal(t, second, got)
	})

	require.NoError(t, db.Close())
	dbtest.JSONEq(t, db.Path(dbDir), []string{"kev", "catalog", "data"}, second)
	dbtest.NoKey(t, db.Path(dbDir), []string{"kev", "cves", "data"})
}

func TestConfig_CVECache(t *testing.T) {
	dbDir := dbtest.InitDB(t)
	dbc := db.Config{}
	const cpe = "cpe:2.3:a:busybox:busybox:1.29.3:*:*:*:*:*:*:*"

	_, ok, err := dbc.GetCVECache(cpe)
	require.NoError(t, err)
	assert.False(t, ok)

	entry := db.CVECacheEntry{
		FetchedAt: time.Date(2022, 1, 22, 10, 0, 0, 0, time.UTC),
		Response:  json.RawMessage(`{"totalResults":0,"vulnerabilities":[]}`),
	}
	require.NoError(t, dbc.PutCVECache(cpe, entry))

	got, ok, err := dbc.GetCVECache(cpe)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry.FetchedAt, got.FetchedAt)
	assert.JSONEq(t, string(entry.Response), string(got.Response))

	require.NoError(t, db.Close())
	dbtest.JSONEq(t, db.Path(dbDir), []string{"cve", "cpe", cpe}, entry)
	dbtest.NoKey(t, db.Path(dbDir), []string{"cve", "cpe", "cpe:2.3:a:xmlsoft:libxml2:2.9.10:*:*:*:*:*:*:*"})
}

func TestMetadata(t *testing.T) {
	dbtest.InitDB(t)

	got, err := db.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, db.Metadata{}, got)

	want := db.Metadata{Version: db.SchemaVersion, UpdatedAt: time.Date(2022, 1, 22, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, db.Config{}.SetMetadata(want))

	got, err = db.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
