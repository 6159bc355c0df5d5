package nvd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"
	getter "github.com/hashicorp/go-getter"
	"github.com/samber/oops"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/feed"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/utils"
)

const (
	DefaultAPIURL  = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	DefaultFeedURL = "https://nvd.nist.gov/feeds/json/cpematch/1.0"

	metaFileName   = "nvdcpematch-1.0.meta"
	checksumPrefix = "sha256:"
	detailURL      = "https://nvd.nist.gov/vuln/detail/"

	retry = 3
)

var (
	ErrInvalidAPIKey = xerrors.New("invalid NVD API key")

	logger = log.WithPrefix("nvd")
)

type Client struct {
	apiURL     string
	feedURL    string
	apiKey     string
	retry      int
	httpClient *http.Client
}

type Option func(*Client)

func WithAPIURL(u string) Option {
	return func(c *Client) {
		c.apiURL = u
	}
}

func WithFeedURL(u string) Option {
	return func(c *Client) {
		c.feedURL = u
	}
}

// WithAPIKey sends the key in the apiKey header. An empty key queries anonymously.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithRetry(n int) Option {
	return func(c *Client) {
		c.retry = n
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		apiURL:     DefaultAPIURL,
		feedURL:    DefaultFeedURL,
		retry:      retry,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCVEsByCPE returns every CVE whose configurations match the CPE, following pagination.
func (c *Client) FetchCVEsByCPE(cpe string) (Response, error) {
	var all Response
	for {
		page, err := c.fetchPage(cpe, all.StartIndex+len(all.Vulnerabilities))
		if err != nil {
			return Response{}, err
		}
		if all.Vulnerabilities == nil {
			all = page
		} else {
			all.Vulnerabilities = append(all.Vulnerabilities, page.Vulnerabilities...)
		}

		if len(page.Vulnerabilities) == 0 || len(all.Vulnerabilities) >= all.TotalResults {
			break
		}
	}
	all.ResultsPerPage = len(all.Vulnerabilities)
	logger.Debug("Fetched CVEs", log.CPE(cpe), log.Int("count", len(all.Vulnerabilities)))
	return all, nil
}

func (c *Client) fetchPage(cpe string, startIndex int) (Response, error) {
	q := url.Values{}
	q.Set("virtualMatchString", cpe)
	if startIndex > 0 {
		q.Set("startIndex", strconv.Itoa(startIndex))
	}
	u := c.apiURL + "?" + q.Encode()

	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["apiKey"] = c.apiKey
	}

	b, err := utils.FetchURL(u, headers, c.retry)
	if err != nil {
		var httpErr *utils.HTTPError
		if c.apiKey != "" && xerrors.As(err, &httpErr) &&
			(httpErr.StatusCode == http.StatusNotFound || httpErr.StatusCode == http.StatusForbidden) {
			return Response{}, ErrInvalidAPIKey
		}
		return Response{}, xerrors.Errorf("CVE fetch error (%s): %w", cpe, err)
	}

	var resp Response
	if err = json.Unmarshal(b, &resp); err != nil {
		return Response{}, xerrors.Errorf("CVE response decode error: %w", err)
	}
	return resp, nil
}

// FetchFeedChecksum returns the lowercase SHA-256 of the uncompressed match feed published in its meta file.
func (c *Client) FetchFeedChecksum() (string, error) {
	logger.Info("Fetching CPE match feed checksum")
	b, err := utils.FetchURL(c.feedURL+"/"+metaFileName, map[string]string{"Accept": "text/plain"}, c.retry)
	if err != nil {
		return "", xerrors.Errorf("feed meta fetch error: %w", err)
	}
	return parseChecksum(string(b))
}

func parseChecksum(meta string) (string, error) {
	for _, line := range strings.Split(meta, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, checksumPrefix) {
			continue
		}
		sum := strings.TrimSpace(strings.TrimPrefix(line, checksumPrefix))
		if sum == "" {
			break
		}
		return strings.ToLower(sum), nil
	}
	return "", xerrors.Errorf("keyword not found in feed meta: %q", checksumPrefix)
}

// DownloadFeed writes the gzipped match feed into dir and returns its path.
// The progress bar is rendered to progress. Nothing is left at the path on failure.
func (c *Client) DownloadFeed(dir string, progress io.Writer) (string, error) {
	u := c.feedURL + "/" + feed.GzFileName
	target := filepath.Join(dir, feed.GzFileName)
	eb := oops.With("url", u).With("file_path", target)

	// go-getter resumes into an existing file, a stale archive must not count as downloaded
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", eb.Wrapf(err, "stale archive remove error")
	}

	pwd, err := os.Getwd()
	if err != nil {
		return "", xerrors.Errorf("unable to get the current dir: %w", err)
	}

	if progress == nil {
		progress = io.Discard
	}
	httpGetter := &getter.HttpGetter{Client: c.httpClient}
	client := &getter.Client{
		Ctx:  context.Background(),
		Src:  u,
		Dst:  target,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
		Getters: map[string]getter.Getter{
			"http":  httpGetter,
			"https": httpGetter,
		},
		// keep the archive, it is uncompressed once its download completed
		Decompressors:    map[string]getter.Decompressor{},
		ProgressListener: progressTracker{w: progress},
	}

	logger.Info("Downloading CPE match feed", log.String("url", u))
	if err = client.Get(); err != nil {
		_ = os.Remove(target)
		return "", eb.Wrapf(err, "feed download error")
	}
	return target, nil
}

// progressTracker renders go-getter downloads as a pb bar.
type progressTracker struct {
	w io.Writer
}

func (t progressTracker) TrackProgress(_ string, currentSize, totalSize int64, stream io.ReadCloser) io.ReadCloser {
	bar := pb.New64(totalSize).Set(pb.Bytes, true).SetCurrent(currentSize).SetWriter(t.w)
	bar.Start()
	// closing the proxy reader finishes the bar
	return bar.NewProxyReader(stream)
}

// DetailURL is the NVD page of the CVE.
func DetailURL(id string) string {
	return fmt.Sprintf("%s%s", detailURL, id)
}
