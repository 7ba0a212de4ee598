package fetcher

import (
	"net/http"
	"time"
)

// newHTTPClient builds the shared *http.Client the Fetcher issues every
// attempt through. Grounded on the teacher's httpclient.NewDefaultHTTPClient
// — a bare timeout-bound client, no cookie jar or auth layered on here
// since career endpoints are public.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}
