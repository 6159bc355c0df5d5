package utils

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"time"

	"github.com/parnurzeal/gorequest"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/log"
)

// HTTPError is returned for non-200 responses.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error. status code: %d, url: %s", e.StatusCode, e.URL)
}

// RetryWait is the pause before the given retry attempt.
var RetryWait = func(attempt int) time.Duration {
	wait := math.Pow(float64(attempt), 2) + float64(randInt()%10)
	return time.Duration(wait) * time.Second
}

// FetchURL GETs the url with the given headers. Client errors (4xx) are not retried.
func FetchURL(url string, headers map[string]string, retry int) (res []byte, err error) {
	for i := 0; i <= retry; i++ {
		if i > 0 {
			wait := RetryWait(i)
			log.Info("Retrying", log.String("url", url), log.String("after", wait.String()))
			time.Sleep(wait)
		}
		res, err = fetchURL(url, headers)
		if err == nil {
			return res, nil
		}

		var httpErr *HTTPError
		if xerrors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			break
		}
	}
	return nil, xerrors.Errorf("failed to fetch URL: %w", err)
}

func randInt() int {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	return int(seed.Int64())
}

func fetchURL(url string, headers map[string]string) ([]byte, error) {
	req := gorequest.New().Get(url)
	for k, v := range headers {
		req.Set(k, v)
	}
	resp, body, errs := req.EndBytes()
	if len(errs) > 0 {
		return nil, xerrors.Errorf("HTTP error. url: %s, err: %w", url, errs[0])
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       body,
		}
	}
	return body, nil
}
