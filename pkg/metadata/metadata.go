package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

const metadataFile = "metadata.json"

// Metadata describes the last sync of a feed dir.
type Metadata struct {
	Version        int    `json:",omitempty"`
	FeedChecksum   string // SHA-256 of the uncompressed match feed
	FeedEntries    int    `json:",omitempty"`
	KnownExploited int    `json:",omitempty"`
	UpdatedAt      time.Time
	DownloadedAt   time.Time // Zero when the feed was already up to date.
}

// Client reads and writes the metadata file of a feed dir
type Client struct {
	filePath string
}

func NewClient(feedDir string) Client {
	return Client{
		filePath: Path(feedDir),
	}
}

func Path(feedDir string) string {
	return filepath.Join(feedDir, metadataFile)
}

// Get returns the sync metadata
func (c Client) Get() (Metadata, error) {
	eb := oops.With("file_path", c.filePath)

	f, err := os.Open(c.filePath)
	if err != nil {
		return Metadata{}, eb.Wrapf(err, "file open error")
	}
	defer f.Close()

	var metadata Metadata
	if err = json.NewDecoder(f).Decode(&metadata); err != nil {
		return Metadata{}, eb.Wrapf(err, "json decode error")
	}
	return metadata, nil
}

func (c Client) Update(meta Metadata) error {
	eb := oops.With("file_path", c.filePath)

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0o744); err != nil {
		return eb.Wrapf(err, "mkdir error")
	}

	f, err := os.Create(c.filePath)
	if err != nil {
		return eb.Wrapf(err, "file create error")
	}
	defer f.Close()

	if err = json.NewEncoder(f).Encode(&meta); err != nil {
		return eb.Wrapf(err, "json encode error")
	}
	return nil
}

// Delete removes the metadata file, forcing the next sync to re-download
func (c Client) Delete() error {
	if err := os.Remove(c.filePath); err != nil {
		return oops.With("file_path", c.filePath).Wrapf(err, "file remove error")
	}
	return nil
}
