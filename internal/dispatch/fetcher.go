package dispatch

import (
	"fmt"
	"net/http"
	netUrl "net/url"
	"time"

	"github.com/gocolly/colly"
)

// Reply is what came back from one endpoint attempt.
type Reply struct {
	StatusCode int
	Body       []byte
	Latency    time.Duration
}

// Fetcher performs a single GET of address?query=term. A non-nil error means no HTTP response was
// received (dial failure, timeout, reset); any status code is returned in Reply.
type Fetcher interface {
	Fetch(address string, term string) (*Reply, error)
}

type FetcherOptions struct {
	UserAgent string
	Headers   map[string]string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// CollyFetcher issues requests through a fresh colly collector per attempt sharing one transport.
type CollyFetcher struct {
	opts FetcherOptions
}

func NewCollyFetcher(opts FetcherOptions) *CollyFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	return &CollyFetcher{opts: opts}
}

func (f *CollyFetcher) Fetch(address string, term string) (*Reply, error) {
	target, err := QueryURL(address, term)
	if err != nil {
		return nil, err
	}

	c := colly.NewCollector()
	c.WithTransport(f.opts.Transport)
	c.SetRequestTimeout(f.opts.Timeout)
	c.UserAgent = f.opts.UserAgent
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true

	reply := &Reply{}
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		for k, v := range f.opts.Headers {
			r.Headers.Set(k, v)
		}
	})
	c.OnResponse(func(resp *colly.Response) {
		reply.StatusCode = resp.StatusCode
		reply.Body = resp.Body
	})
	c.OnError(func(resp *colly.Response, err error) {
		if resp != nil && resp.StatusCode != 0 {
			reply.StatusCode = resp.StatusCode
			reply.Body = resp.Body
			return
		}
		fetchErr = err
	})

	t := time.Now()
	err = c.Visit(target)
	reply.Latency = time.Since(t)
	if fetchErr != nil {
		return reply, fetchErr
	}
	if err != nil && reply.StatusCode == 0 {
		return reply, err
	}

	return reply, nil
}

// QueryURL appends query=<term> to the endpoint address, keeping any query it already has.
func QueryURL(address string, term string) (string, error) {
	u, err := netUrl.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", address, err)
	}
	q := u.Query()
	q.Set("query", term)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
