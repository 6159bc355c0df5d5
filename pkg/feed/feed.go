package feed

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/set"
)

const (
	FileName   = "nvdcpematch-1.0.json"
	GzFileName = "nvdcpematch-1.0.json.gz"

	// keyMarker precedes every CPE value in the pretty-printed match feed.
	keyMarker = `"cpe23Uri" : "`

	maxLineSize = 16 * 1024 * 1024
)

var (
	ErrFeedNotFound = xerrors.New("CPE match feed not found, did you forget to run `vulner sync`?")

	logger = log.WithPrefix("feed")
)

// Path returns the location of the uncompressed feed inside feedDir.
func Path(feedDir string) string {
	return filepath.Join(feedDir, FileName)
}

// ContainsCPEKey reports whether the feed line carries a CPE value.
func ContainsCPEKey(line string) bool {
	return strings.Contains(line, keyMarker)
}

// ScrapeCPE extracts the CPE value from a feed line such as
// `    "cpe23Uri" : "cpe:2.3:a:xmlsoft:libxml2:2.9.10:*:*:*:*:*:*:*",`.
func ScrapeCPE(line string) string {
	if i := strings.LastIndex(line, keyMarker); i >= 0 {
		line = line[i+len(keyMarker):]
	}
	v := strings.TrimSpace(line)
	v = strings.Trim(v, ",")
	v = strings.Trim(v, `"`)
	return strings.TrimSpace(v)
}

// Index is the set of distinct CPE values of the feed.
// It is read-only once Load returns and safe to share across goroutines.
type Index struct {
	entries []string
	lookup  set.Set[string]
}

// Load reads the whole feed file. Matching must not start before it returns,
// a partial index would hide matches.
func Load(path string) (*Index, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	logger.Info("Loading CPE match feed", log.FilePath(path))
	idx, err := NewIndex(f)
	if err != nil {
		return nil, oops.With("file_path", path).Wrapf(err, "feed index error")
	}
	logger.Debug("Loaded CPE match feed", log.Int("entries", idx.Len()))
	return idx, nil
}

// NewIndex builds an index from any reader producing the feed's lines.
func NewIndex(r io.Reader) (*Index, error) {
	entries := set.New[string]()
	err := scan(r, func(cpe string) {
		entries.Append(cpe)
	})
	if err != nil {
		return nil, err
	}

	sorted := entries.Values()
	sort.Strings(sorted)
	return &Index{
		entries: sorted,
		lookup:  entries,
	}, nil
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns the sorted CPE values. Callers must not modify the slice.
func (idx *Index) Entries() []string {
	return idx.entries
}

func (idx *Index) Contains(cpe string) bool {
	return idx.lookup.Contains(cpe)
}

// Grep matches the pattern against every CPE value of the feed file in a single pass
// and returns the distinct matches. An empty pattern matches nothing.
func Grep(pattern, path string) (set.Set[string], error) {
	matches := set.New[string]()
	if pattern == "" {
		return matches, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return matches, xerrors.Errorf("pattern compile error: %w", err)
	}

	f, err := open(path)
	if err != nil {
		return matches, err
	}
	defer f.Close()

	err = scan(f, func(cpe string) {
		if re.MatchString(cpe) {
			matches.Append(cpe)
		}
	})
	if err != nil {
		return matches, oops.With("file_path", path).Wrapf(err, "feed grep error")
	}
	return matches, nil
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Error("CPE match feed doesn't exist, run `vulner sync` first", log.FilePath(path))
		return nil, xerrors.Errorf("%s: %w", path, ErrFeedNotFound)
	} else if err != nil {
		return nil, oops.With("file_path", path).Wrapf(err, "feed open error")
	}
	return f, nil
}

func scan(r io.Reader, fn func(cpe string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if !ContainsCPEKey(line) {
			continue
		}
		if cpe := ScrapeCPE(line); cpe != "" {
			fn(cpe)
		}
	}
	if err := scanner.Err(); err != nil {
		return xerrors.Errorf("feed scan error: %w", err)
	}
	return nil
}
