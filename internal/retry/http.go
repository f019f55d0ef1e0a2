// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retry

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DoRequest executes an HTTP request through the invoker. HTTP 429 responses
// are drained, closed, and classified as rate limits so they back off under
// the full attempt budget; transport timeouts classify as transient. Any
// other response is returned to the caller unread, including non-2xx.
func DoRequest(ctx context.Context, client *http.Client, req *http.Request, p Policy) (*http.Response, error) {
	return Do(ctx, p, func(ctx context.Context) (*http.Response, error) {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, RateLimited(fmt.Errorf("%s: HTTP 429", req.URL.Host))
		}

		return resp, nil
	})
}
