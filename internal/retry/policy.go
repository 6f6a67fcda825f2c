package retry

import (
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Policy is the flag-friendly form of a Transport.
type Policy struct {
	Base          time.Duration
	Max           time.Duration
	MaxRetryCount uint
	// On is a comma separated retry-on list, the default conditions when empty.
	On string
}

func DefaultPolicy() Policy {
	return Policy{
		Base:          10 * time.Millisecond,
		Max:           1 * time.Second,
		MaxRetryCount: 3,
	}
}

func (p Policy) Transport(base http.RoundTripper) (*Transport, error) {
	on := NewDefaultRetryOn()
	if p.On != "" {
		var err error
		if on, err = NewRetryOnFromString(p.On); err != nil {
			return nil, xerrors.Errorf("failed to parse retry policy: %w", err)
		}
	}

	return &Transport{
		Base:          base,
		RetryStrategy: NewExponentialBackOff(p.Base, p.Max, p.MaxRetryCount, nil),
		RetryOn:       on,
	}, nil
}
