package geocode

import (
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// newTestLimiter never blocks.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient returns a client whose requests to target's host are sent
// to the test server instead, path and query untouched.
func newRewriteClient(testServerURL, target string) *http.Client {
	srv, err := url.Parse(testServerURL)
	if err != nil {
		panic(err)
	}
	tgt, err := url.Parse(target)
	if err != nil {
		panic(err)
	}
	return &http.Client{Transport: hostRewriter{from: tgt.Host, to: srv}}
}

type hostRewriter struct {
	from string
	to   *url.URL
}

func (h hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host != h.from {
		return http.DefaultTransport.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = h.to.Scheme
	out.URL.Host = h.to.Host
	out.Host = h.to.Host
	return http.DefaultTransport.RoundTrip(out)
}
