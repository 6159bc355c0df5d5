package kevc

import (
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/set"
	"github.com/aquasecurity/vulner/pkg/utils"
)

const (
	kevcURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	retry   = 5
)

var logger = log.WithPrefix("kevc")

type Client struct {
	*options
}

type option func(*options)

type options struct {
	url   string
	retry int
}

func WithURL(url string) option {
	return func(opts *options) { opts.url = url }
}

func WithRetry(retry int) option {
	return func(opts *options) { opts.retry = retry }
}

func NewClient(opts ...option) Client {
	o := &options{
		url:   kevcURL,
		retry: retry,
	}
	for _, opt := range opts {
		opt(o)
	}
	return Client{
		options: o,
	}
}

// Fetch downloads the catalog and checks it is complete.
func (c Client) Fetch() (Catalog, error) {
	logger.Info("Fetching Known Exploited Vulnerabilities Catalog")

	res, err := utils.FetchURL(c.url, map[string]string{"Accept": "application/json"}, c.retry)
	if err != nil {
		return Catalog{}, xerrors.Errorf("failed to fetch KEVC: %w", err)
	}
	catalog := Catalog{}
	if err = json.Unmarshal(res, &catalog); err != nil {
		return Catalog{}, xerrors.Errorf("failed to KEVC json unmarshal error: %w", err)
	}
	if catalog.Count != len(catalog.Vulnerabilities) {
		return Catalog{}, xerrors.Errorf("failed to Vulnerabilities count error: kevc.Count %d, kevc.Vulnerability length %d",
			catalog.Count, len(catalog.Vulnerabilities))
	}
	return catalog, nil
}

// CVEIDs returns the CVE IDs of the catalog. Entries without a CVE ID are skipped.
func CVEIDs(catalog Catalog) set.Set[string] {
	ids := set.New[string]()
	for _, vuln := range catalog.Vulnerabilities {
		if !strings.HasPrefix(vuln.CveID, "CVE-") {
			logger.Debug("Discovered non-CVE-ID", log.String("id", vuln.CveID))
			continue
		}
		ids.Append(vuln.CveID)
	}
	return ids
}
