package retry

import (
	"io"
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Transport retries round trips according to RetryOn, sleeping between
// attempts as told by RetryStrategy. Requests with a body are replayed through
// GetBody, so requests built by http.NewRequest with a bytes or strings reader
// are retried safely; other bodies are sent once.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()
	replayable := request.Body == nil || request.Body == http.NoBody || request.GetBody != nil

	for retryCount := uint(0); ; retryCount++ {
		attempt := request
		if retryCount > 0 && request.GetBody != nil {
			body, err := request.GetBody()
			if err != nil {
				return nil, xerrors.Errorf("failed to rewind request body: %w", err)
			}
			attempt = request.Clone(ctx)
			attempt.Body = body
		}

		sleep, exceeded := t.retryStrategy().Sleep(retryCount)

		response, err := t.base().RoundTrip(attempt)
		retriable := !exceeded && replayable && t.RetryOn != nil
		if err != nil {
			if !retriable || !t.RetryOn.CheckError(err) {
				return nil, err
			}
		} else {
			if !retriable || !t.RetryOn.CheckResponse(response) {
				return response, nil
			}
			// Drain so the connection can be reused by the next attempt.
			_, _ = io.Copy(io.Discard, response.Body)
			response.Body.Close()
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
