package vulndb_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
	fake "k8s.io/utils/clock/testing"

	"github.com/aquasecurity/vulner/pkg/db"
	"github.com/aquasecurity/vulner/pkg/dbtest"
	"github.com/aquasecurity/vulner/pkg/feed"
	"github.com/aquasecurity/vulner/pkg/kevc"
	"github.com/aquasecurity/vulner/pkg/metadata"
	"github.com/aquasecurity/vulner/pkg/utils"
	"github.com/aquasecurity/vulner/pkg/vulndb"
)

const (
	oldFeed = `{
  "matches" : [ {
    "cpe23Uri" : "cpe:2.3:a:busybox:busybox:1.29.3:*:*:*:*:*:*:*"
  } ]
}
`
	newFeed = `{
  "matches" : [ {
    "cpe23Uri" : "cpe:2.3:a:busybox:busybox:1.29.3:*:*:*:*:*:*:*"
  }, {
    "cpe23Uri" : "cpe:2.3:a:xmlsoft:libxml2:2.9.10:*:*:*:*:*:*:*"
  } ]
}
`
	// remote checksum not matching oldFeed
	newFeedChecksum = "4a4b7c9b9a8b7e6c1e0e5e0b0a1f6d3c8f7e6d5c4b3a29180706f5e4d3c2b1a0"
)

type fakeFeedSource struct {
	checksum  string
	content   string
	downloads int
	err       error
}

func (f *fakeFeedSource) FetchFeedChecksum() (string, error) {
	return f.checksum, f.err
}

func (f *fakeFeedSource) DownloadFeed(dir string, _ io.Writer) (string, error) {
	f.downloads++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, feed.GzFileName)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	zw := gzip.NewWriter(out)
	if _, err = zw.Write([]byte(f.content)); err != nil {
		return "", err
	}
	return path, zw.Close()
}

type fakeCatalogSource struct {
	err error
}

func (f fakeCatalogSource) Fetch() (kevc.Catalog, error) {
	if f.err != nil {
		return kevc.Catalog{}, f.err
	}
	return kevc.Catalog{
		CatalogVersion: "2022.01.21",
		Count:          3,
		Vulnerabilities: []kevc.Vulnerability{
			{CveID: "CVE-2021-44228"},
			{CveID: "CVE-2021-42378"},
			{CveID: "not-a-cve"},
		},
	}, nil
}

func TestCore_Sync(t *testing.T) {
	now := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name          string
		existing      string
		src           *fakeFeedSource
		kevErr        error
		wantDownloads int
		wantFeed      string
		wantEntries   int
		wantErr       string
	}{
		{
			name:          "no local feed",
			src:           &fakeFeedSource{content: newFeed},
			wantDownloads: 1,
			wantFeed:      newFeed,
			wantEntries:   2,
		},
		{
			name:          "checksum changed",
			existing:      oldFeed,
			src:           &fakeFeedSource{checksum: newFeedChecksum, content: newFeed},
			wantDownloads: 1,
			wantFeed:      newFeed,
			wantEntries:   2,
		},
		{
			name:        "up to date",
			existing:    oldFeed,
			src:         &fakeFeedSource{content: newFeed}, // checksum of oldFeed set below
			wantFeed:    oldFeed,
			wantEntries: 1,
		},
		{
			name:    "download error",
			src:     &fakeFeedSource{err: xerrors.New("connection refused")},
			wantErr: "connection refused",
		},
		{
			name:    "catalog error",
			src:     &fakeFeedSource{content: newFeed},
			kevErr:  xerrors.New("catalog unavailable"),
			wantErr: "catalog unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbDir := dbtest.InitDB(t)
			feedDir := filepath.Join(t.TempDir(), "feeds", "json")

			if tt.existing != "" {
				require.NoError(t, os.MkdirAll(feedDir, 0o755))
				require.NoError(t, os.WriteFile(feed.Path(feedDir), []byte(tt.existing), 0o600))
				if tt.src.checksum == "" {
					sum, err := utils.FileChecksum(feed.Path(feedDir))
					require.NoError(t, err)
					tt.src.checksum = sum
				}
			}

			core := vulndb.New(
				vulndb.WithClock(fake.NewFakeClock(now)),
				vulndb.WithFeedSource(tt.src),
				vulndb.WithCatalogSource(fakeCatalogSource{err: tt.kevErr}),
				vulndb.WithProgress(io.Discard),
			)
			err := core.Sync(feedDir)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDownloads, tt.src.downloads)

			b, err := os.ReadFile(feed.Path(feedDir))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFeed, string(b))
			assert.NoFileExists(t, filepath.Join(feedDir, feed.GzFileName))

			got, err := metadata.NewClient(feedDir).Get()
			require.NoError(t, err)
			wantChecksum, err := utils.FileChecksum(feed.Path(feedDir))
			require.NoError(t, err)
			want := metadata.Metadata{
				Version:        db.SchemaVersion,
				FeedChecksum:   wantChecksum,
				FeedEntries:    tt.wantEntries,
				KnownExploited: 2,
				UpdatedAt:      now,
			}
			if tt.wantDownloads > 0 {
				want.DownloadedAt = now
			}
			assert.Equal(t, want, got)

			require.NoError(t, db.Close())
			dbtest.JSONEq(t, db.Path(dbDir), []string{"kev", "catalog", "data"}, db.KnownExploited{
				CatalogVersion: "2022.01.21",
				UpdatedAt:      now,
				CVEIDs:         []string{"CVE-2021-42378", "CVE-2021-44228"},
			})
			dbtest.JSONEq(t, db.Path(dbDir), []string{"vulner", "metadata", "data"}, db.Metadata{
				Version:   db.SchemaVersion,
				UpdatedAt: now,
			})
		})
	}
}
