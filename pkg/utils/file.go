package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/samber/oops"

	"github.com/aquasecurity/vulner/pkg/log"
)

func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return true, err
}

func UnmarshalJSONFile(v any, fileName string) error {
	eb := oops.With("file_name", fileName)

	f, err := os.Open(fileName)
	if err != nil {
		return eb.Wrapf(err, "file open error")
	}
	defer f.Close()

	if err = json.NewDecoder(f).Decode(v); err != nil {
		return eb.Wrapf(err, "json decode error")
	}
	return nil
}

// FileChecksum returns the lowercase hex SHA-256 of the file.
func FileChecksum(path string) (string, error) {
	eb := oops.With("file_path", path)
	log.Info("Computing checksum", log.FilePath(path))

	f, err := os.Open(path)
	if err != nil {
		return "", eb.Wrapf(err, "file open error")
	}
	defer f.Close()

	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", eb.Wrapf(err, "file read error")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Gunzip decompresses "<name>.gz" into "<name>" and removes the archive, like gunzip -f.
func Gunzip(path string) (string, error) {
	eb := oops.With("file_path", path)
	log.Info("Uncompressing", log.FilePath(path))

	src, err := os.Open(path)
	if err != nil {
		return "", eb.Wrapf(err, "file open error")
	}
	defer src.Close()

	zr, err := gzip.NewReader(src)
	if err != nil {
		return "", eb.Wrapf(err, "gzip header error")
	}
	defer zr.Close()

	target := strings.TrimSuffix(path, ".gz")
	if target == path {
		target = path + ".out"
	}
	dst, err := os.Create(target)
	if err != nil {
		return "", eb.With("target", target).Wrapf(err, "file create error")
	}
	if _, err = io.Copy(dst, zr); err != nil {
		_ = dst.Close()
		return "", eb.With("target", target).Wrapf(err, "gunzip error")
	}
	if err = dst.Close(); err != nil {
		return "", eb.With("target", target).Wrapf(err, "file close error")
	}

	_ = src.Close()
	if err = os.Remove(path); err != nil {
		return "", eb.Wrapf(err, "archive remove error")
	}
	return target, nil
}
