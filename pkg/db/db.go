package db

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/log"
)

const (
	SchemaVersion = 1

	metadataBucket = "vulner"
	kevBucket      = "kev"
	cveBucket      = "cve"
)

var (
	db    *bolt.DB
	dbDir string
)

// Operation is the storage used by sync and CVE lookups.
type Operation interface {
	PutKnownExploited(KnownExploited) error
	GetKnownExploited() (KnownExploited, error)

	PutCVECache(cpe string, entry CVECacheEntry) error
	GetCVECache(cpe string) (CVECacheEntry, bool, error)

	SetMetadata(metadata Metadata) error
}

type Metadata struct {
	Version   int
	UpdatedAt time.Time
}

type Config struct {
}

func Init(cacheDir string) (err error) {
	dbPath := Path(cacheDir)
	dbDir = filepath.Dir(dbPath)
	if err = os.MkdirAll(dbDir, 0700); err != nil {
		return xerrors.Errorf("failed to mkdir: %w", err)
	}

	log.Debug("Opening db", log.FilePath(dbPath))
	db, err = bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return xerrors.Errorf("failed to open db: %w", err)
	}
	return nil
}

func Path(cacheDir string) string {
	return filepath.Join(cacheDir, "db", "vulner.db")
}

func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return xerrors.Errorf("failed to close DB: %w", err)
	}
	db = nil
	return nil
}

func GetMetadata() (Metadata, error) {
	var metadata Metadata
	value, err := Config{}.get(metadataBucket, "metadata", "data")
	if err != nil {
		return Metadata{}, err
	} else if value == nil {
		return Metadata{}, nil
	}
	if err = json.Unmarshal(value, &metadata); err != nil {
		return Metadata{}, xerrors.Errorf("failed to unmarshal metadata: %w", err)
	}
	return metadata, nil
}

func (dbc Config) SetMetadata(metadata Metadata) error {
	err := dbc.update(metadataBucket, "metadata", "data", metadata)
	if err != nil {
		return xerrors.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (dbc Config) update(rootBucket, nestedBucket, key string, value interface{}) error {
	err := db.Update(func(tx *bolt.Tx) error {
		return dbc.putNestedBucket(tx, rootBucket, nestedBucket, key, value)
	})
	if err != nil {
		return xerrors.Errorf("error in db update: %w", err)
	}
	return err
}

func (dbc Config) putNestedBucket(tx *bolt.Tx, rootBucket, nestedBucket, key string, value interface{}) error {
	root, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
	if err != nil {
		return xerrors.Errorf("failed to create a bucket: %w", err)
	}
	nested, err := root.CreateBucketIfNotExists([]byte(nestedBucket))
	if err != nil {
		return xerrors.Errorf("failed to create a bucket: %w", err)
	}
	v, err := json.Marshal(value)
	if err != nil {
		return xerrors.Errorf("failed to marshal JSON: %w", err)
	}
	return nested.Put([]byte(key), v)
}

// get returns nil when the key or one of its buckets does not exist.
func (dbc Config) get(rootBucket, nestedBucket, key string) (value []byte, err error) {
	err = db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return nil
		}
		nested := root.Bucket([]byte(nestedBucket))
		if nested == nil {
			return nil
		}
		if v := nested.Get([]byte(key)); v != nil {
			// bolt values are only valid inside the transaction
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to get data from db: %w", err)
	}
	return value, nil
}

func (dbc Config) deleteBucket(bucketName string) error {
	return db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(bucketName))
		if err != nil && !xerrors.Is(err, bolt.ErrBucketNotFound) {
			return xerrors.Errorf("failed to delete bucket: %w", err)
		}
		return nil
	})
}
