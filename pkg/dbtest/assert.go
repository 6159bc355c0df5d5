package dbtest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var ErrNoBucket = xerrors.New("no such bucket")

// JSONEq asserts that the value at keys, the last one being the key inside the innermost bucket, is want encoded as JSON.
// The db must be closed first.
func JSONEq(t *testing.T, dbPath string, keys []string, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()

	wantByte, err := json.Marshal(want)
	require.NoError(t, err, msgAndArgs...)

	got, err := get(dbPath, keys)
	require.NoError(t, err, msgAndArgs...)
	require.NotNil(t, got, msgAndArgs...)

	assert.JSONEq(t, string(wantByte), string(got), msgAndArgs...)
}

// NoKey asserts that nothing is stored at keys.
func NoKey(t *testing.T, dbPath string, keys []string, msgAndArgs ...interface{}) {
	t.Helper()

	got, err := get(dbPath, keys)
	if xerrors.Is(err, ErrNoBucket) {
		return
	}
	require.NoError(t, err, msgAndArgs...)
	assert.Nil(t, got, msgAndArgs...)
}

func get(dbPath string, keys []string) ([]byte, error) {
	if len(keys) < 2 {
		return nil, xerrors.Errorf("malformed keys: %v", keys)
	}
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var b []byte
	err = db.View(func(tx *bolt.Tx) error {
		bkts, key := keys[:len(keys)-1], keys[len(keys)-1]

		bucket := tx.Bucket([]byte(bkts[0]))
		for _, k := range bkts[1:] {
			if bucket == nil {
				break
			}
			bucket = bucket.Bucket([]byte(k))
		}
		if bucket == nil {
			return xerrors.Errorf("bucket error %v: %w", keys, ErrNoBucket)
		}

		if res := bucket.Get([]byte(key)); res != nil {
			b = append([]byte{}, res...)
		}
		return nil
	})
	return b, err
}
