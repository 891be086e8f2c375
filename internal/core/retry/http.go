package retry

import (
	"fmt"
	"net/http"
)

// DefaultRetryStatuses are the response codes treated as transient when
// no explicit set is configured.
var DefaultRetryStatuses = []int{
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// StatusError is the synthesized retryable failure for a response whose
// status falls in the configured retry set.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("retryable http status: %d", e.StatusCode)
}

// HTTPClient issues requests through a retrying executor. Responses with
// a status in RetryStatuses are retried; every other response, including
// non-2xx statuses outside the set, is returned to the caller untouched.
// Status interpretation beyond the retry set belongs to the caller.
type HTTPClient struct {
	Client        *http.Client
	Options       Options
	RetryStatuses []int
}

// Do executes the request with retry on transport errors and retryable
// statuses.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	statuses := c.RetryStatuses
	if len(statuses) == 0 {
		statuses = DefaultRetryStatuses
	}
	retryable := make(map[int]struct{}, len(statuses))
	for _, code := range statuses {
		retryable[code] = struct{}{}
	}

	return Do(req.Context(), func() (*http.Response, error) {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, Permanent(err)
			}
			req.Body = body
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if _, ok := retryable[resp.StatusCode]; ok {
			// Drain so the connection can be reused across attempts.
			_ = resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	}, c.Options)
}
