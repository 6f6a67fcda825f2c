package retry

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Condition names follow the retry-on vocabulary of envoy's router filter.
type Condition string

const (
	Any5xx         Condition = "5xx"
	GatewayError   Condition = "gateway-error"
	ConnectFailure Condition = "connect-failure"
	Retriable4xx   Condition = "retriable-4xx"
)

var conditionOrder = []Condition{Any5xx, GatewayError, ConnectFailure, Retriable4xx}

// On decides whether a finished attempt is worth another one.
type On struct {
	conditions  map[Condition]bool
	statusCodes []int
}

// NewDefaultRetryOn retries what a download or a callback can recover from:
// unreachable upstreams, 502-504 and 409.
func NewDefaultRetryOn() *On {
	return &On{
		conditions: map[Condition]bool{
			GatewayError:   true,
			ConnectFailure: true,
			Retriable4xx:   true,
		},
	}
}

// NewRetryOnFromString parses a comma separated list of conditions and plain
// status codes, e.g. "gateway-error,connect-failure,429".
func NewRetryOnFromString(s string) (*On, error) {
	o := &On{conditions: map[Condition]bool{}}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if slices.Contains(conditionOrder, Condition(field)) {
			o.conditions[Condition(field)] = true
			continue
		}

		statusCode, err := strconv.Atoi(field)
		if err != nil || statusCode < 100 || statusCode > 599 {
			return nil, xerrors.Errorf("invalid retryOn: %s", field)
		}
		if !slices.Contains(o.statusCodes, statusCode) {
			o.statusCodes = append(o.statusCodes, statusCode)
		}
	}
	return o, nil
}

// https://github.com/envoyproxy/envoy/blob/70d6ec1df6384118cf2fa2f02c0041edb76b2377/source/common/router/retry_state_impl.cc#L387
func (o *On) CheckResponse(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o.conditions[Any5xx] && code >= 500 && code < 600:
		return true
	case o.conditions[GatewayError] && code >= 502 && code < 505:
		return true
	case o.conditions[Retriable4xx] && code == http.StatusConflict:
		return true
	}
	return slices.Contains(o.statusCodes, code)
}

// CheckError reports whether a transport error means the upstream never
// answered. 5xx implies connect-failure, as in envoy.
func (o *On) CheckError(err error) bool {
	if !o.conditions[ConnectFailure] && !o.conditions[Any5xx] {
		return false
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	return (errors.As(err, &terr) && terr.Temporary()) || errors.Is(err, io.EOF)
}

func (o *On) String() string {
	var fields []string
	for _, c := range conditionOrder {
		if o.conditions[c] {
			fields = append(fields, string(c))
		}
	}
	for _, statusCode := range o.statusCodes {
		fields = append(fields, strconv.Itoa(statusCode))
	}
	return strings.Join(fields, ",")
}
