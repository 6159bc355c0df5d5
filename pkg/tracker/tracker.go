package tracker

import (
	"encoding/json"
	"fmt"
	"net/url"

	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/types"
	"github.com/aquasecurity/vulner/pkg/utils"
)

const (
	bugsURL = "https://bugs.funtoo.org"
	uiPath  = "browse"
	apiPath = "rest/api/latest"

	// Jira issue type of Funtoo vulnerability tickets
	vulnIssueType = "10200"

	retry = 3
)

var logger = log.WithPrefix("tracker")

type searchResponse struct {
	Total  int `json:"total"`
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"issues"`
}

// Client queries the Funtoo Jira instance.
type Client struct {
	baseURL string
	retry   int
}

type Option func(*Client)

func WithURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

func WithRetry(n int) Option {
	return func(c *Client) {
		c.retry = n
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: bugsURL,
		retry:   retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open lists the vulnerability tickets that are not done yet.
func (c *Client) Open() ([]types.TrackerSummary, error) {
	resp, err := c.search(fmt.Sprintf("issuetype = %s AND statuscategory != Done", vulnIssueType))
	if err != nil {
		return nil, xerrors.Errorf("open tickets: %w", err)
	}

	summaries := make([]types.TrackerSummary, 0, len(resp.Issues))
	for _, issue := range resp.Issues {
		summaries = append(summaries, types.TrackerSummary{
			ID:      issue.Key,
			URL:     fmt.Sprintf("%s/%s/%s", c.baseURL, uiPath, issue.Key),
			Summary: issue.Fields.Summary,
		})
	}
	return summaries, nil
}

// TicketsByCVE returns the keys of the vulnerability tickets mentioning the CVE.
func (c *Client) TicketsByCVE(cveID string) ([]string, error) {
	resp, err := c.search(fmt.Sprintf("issuetype = %s AND text ~ %s", vulnIssueType, cveID))
	if err != nil {
		return nil, xerrors.Errorf("tickets of %s: %w", cveID, err)
	}

	tickets := make([]string, 0, len(resp.Issues))
	for _, issue := range resp.Issues {
		tickets = append(tickets, issue.Key)
	}
	return tickets, nil
}

func (c *Client) search(jql string) (searchResponse, error) {
	q := url.Values{}
	q.Set("fields", "key,summary")
	q.Set("jql", jql)
	u := fmt.Sprintf("%s/%s/search?%s", c.baseURL, apiPath, q.Encode())

	logger.Debug("Searching tracker", log.String("jql", jql))
	b, err := utils.FetchURL(u, map[string]string{"Accept": "application/json"}, c.retry)
	if err != nil {
		return searchResponse{}, xerrors.Errorf("tracker search error: %w", err)
	}

	var resp searchResponse
	if err = json.Unmarshal(b, &resp); err != nil {
		return searchResponse{}, xerrors.Errorf("tracker response decode error: %w", err)
	}
	return resp, nil
}
