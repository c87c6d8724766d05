// Package httpclient is the outbound HTTP transport shared by the payment
// and exchange-rate adapters: bounded timeout plus a circuit breaker.
package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without touching the network while the
// upstream is considered down.
var ErrCircuitOpen = errors.New("circuit breaker open")

var errServerStatus = errors.New("upstream 5xx")

const maxBody = 1 << 20

type Response struct {
	Status int
	Body   []byte
}

type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*Response]
}

type Options struct {
	Name             string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenFor          time.Duration
	Transport        http.RoundTripper
}

func New(opts Options, log *zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		breaker: gobreaker.NewCircuitBreaker[*Response](settings),
	}
}

// Do sends req and reads the body. Transport failures and 5xx responses
// count against the breaker; a 4xx is returned as a normal Response.
func (c *Client) Do(req *http.Request) (*Response, error) {
	resp, err := c.breaker.Execute(func() (*Response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer r.Body.Close()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		out := &Response{Status: r.StatusCode, Body: body}
		if r.StatusCode >= 500 {
			return out, errServerStatus
		}
		return out, nil
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, ErrCircuitOpen
	case errors.Is(err, errServerStatus):
		return resp, nil
	}
	return resp, err
}
