package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPChecker considers a worker alive while a GET of its health endpoint
// returns an accepted status code
type HTTPChecker struct {
	URL     string
	Timeout time.Duration

	// Accept reports whether a status code counts as alive. The default
	// accepts 2xx and 3xx.
	Accept func(code int) bool

	client *http.Client
}

func NewHTTPChecker(url string, timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		URL:     url,
		Timeout: timeout,
		Accept:  successOrRedirect,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	code, err := c.get(ctx)
	if err == nil && !c.Accept(code) {
		err = fmt.Errorf("unexpected HTTP %d %s", code, http.StatusText(code))
	}
	return finish(start, err)
}

func (c *HTTPChecker) get(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *HTTPChecker) Type() CheckType { return CheckTypeHTTP }

func successOrRedirect(code int) bool {
	return code >= 200 && code < 400
}
