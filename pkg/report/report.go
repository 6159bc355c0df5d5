package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/oops"
	"k8s.io/utils/clock"

	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/types"
)

var logger = log.WithPrefix("report")

// Writer stores one file per CPE with one JSON CVE summary per line,
// under <out>/<date>/<hh:mm:ssZ>/<category>/<cpe>.txt.
type Writer struct {
	dir   string
	clock clock.Clock
}

type Option func(*Writer)

func WithClock(clock clock.Clock) Option {
	return func(w *Writer) {
		w.clock = clock
	}
}

// NewWriter fixes the run directory from the current time.
func NewWriter(outDir string, opts ...Option) *Writer {
	w := &Writer{
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(w)
	}

	now := w.clock.Now().UTC()
	w.dir = filepath.Join(outDir, now.Format("2006-01-02"), now.Format("15:04:05")+"Z")
	return w
}

// Dir is the run directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores the summaries of a CPE. Nothing is written for an empty list.
func (w *Writer) Write(category, cpe string, cves []types.CveSummary) (string, error) {
	if len(cves) == 0 {
		return "", nil
	}

	dir := filepath.Join(w.dir, category)
	path := filepath.Join(dir, FileName(cpe))
	eb := oops.With("file_path", path)

	logger.Debug("Saving report", log.FilePath(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eb.Wrapf(err, "mkdir error")
	}

	f, err := os.Create(path)
	if err != nil {
		return "", eb.Wrapf(err, "file create error")
	}
	defer f.Close()

	for _, cve := range cves {
		if _, err = fmt.Fprintln(f, cve.String()); err != nil {
			return "", eb.Wrapf(err, "file write error")
		}
	}
	return path, nil
}

// FileName is the report file name of a CPE. CPE 2.3 strings escape "/" as "\/",
// both are replaced so the name stays a single path element.
func FileName(cpe string) string {
	return strings.NewReplacer(`\/`, "_", "/", "_").Replace(cpe) + ".txt"
}

// Summary counts the findings of a scan.
type Summary struct {
	Dir        string
	Categories int
	Packages   int
	CPEs       int
	Failed     []string                      // CPEs whose lookup or report failed
	Findings   map[string][]types.CveSummary // by category
}

func (s Summary) CVEs() int {
	var n int
	for _, cves := range s.Findings {
		n += len(cves)
	}
	return n
}

// Print renders the findings grouped by category, colored by severity.
func (s Summary) Print(w io.Writer) {
	categories := make([]string, 0, len(s.Findings))
	for category := range s.Findings {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	bold := color.New(color.Bold).SprintFunc()
	for _, category := range categories {
		fmt.Fprintln(w, bold(category))
		for _, cve := range s.Findings[category] {
			severity := cve.Severity
			if severity == "" {
				severity = types.SeverityUnknown.String()
			}
			line := fmt.Sprintf("  %s %s", cve.ID, types.ColorizeSeverity(severity))
			if cve.KnownExploited {
				line += " " + color.New(color.FgRed, color.Bold).Sprint("KNOWN EXPLOITED")
			}
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintf(w, "\n%d packages in %d categories, %d CPEs, %d CVEs\n", s.Packages, s.Categories, s.CPEs, s.CVEs())
	if len(s.Failed) > 0 {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprintf("%d CPEs failed, see the log:", len(s.Failed)))
		for _, cpe := range s.Failed {
			fmt.Fprintf(w, "  %s\n", cpe)
		}
	}
	fmt.Fprintf(w, "Done. You can find results in %s\n", s.Dir)
}
