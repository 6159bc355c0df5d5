package tracker_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vulner/pkg/tracker"
	"github.com/aquasecurity/vulner/pkg/types"
)

const searchResponse = `{
  "startAt": 0,
  "maxResults": 50,
  "total": 2,
  "issues": [
    {"key": "FL-9441", "fields": {"summary": "busybox: CVE-2021-42374"}},
    {"key": "FL-9442", "fields": {"summary": "libxml2: CVE-2022-23308"}}
  ]
}`

func newServer(t *testing.T, wantJQL string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/latest/search", r.URL.Path)
		assert.Equal(t, "key,summary", r.URL.Query().Get("fields"))
		assert.Equal(t, wantJQL, r.URL.Query().Get("jql"))
		_, _ = w.Write([]byte(searchResponse))
	}))
}

func TestClient_Open(t *testing.T) {
	ts := newServer(t, "issuetype = 10200 AND statuscategory != Done")
	defer ts.Close()

	got, err := tracker.NewClient(tracker.WithURL(ts.URL), tracker.WithRetry(0)).Open()
	require.NoError(t, err)
	assert.Equal(t, []types.TrackerSummary{
		{ID: "FL-9441", URL: ts.URL + "/browse/FL-9441", Summary: "busybox: CVE-2021-42374"},
		{ID: "FL-9442", URL: ts.URL + "/browse/FL-9442", Summary: "libxml2: CVE-2022-23308"},
	}, got)
}

func TestClient_TicketsByCVE(t *testing.T) {
	ts := newServer(t, "issuetype = 10200 AND text ~ CVE-2021-42374")
	defer ts.Close()

	got, err := tracker.NewClient(tracker.WithURL(ts.URL), tracker.WithRetry(0)).TicketsByCVE("CVE-2021-42374")
	require.NoError(t, err)
	assert.Equal(t, []string{"FL-9441", "FL-9442"}, got)
}

func TestClient_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := tracker.NewClient(tracker.WithURL(ts.URL), tracker.WithRetry(0)).Open()
	assert.Error(t, err)
}
