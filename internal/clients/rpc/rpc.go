package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrUnavailable marks transport-level failures: the remote service did not
// answer at all (connection problem, no responders, timeout).
var ErrUnavailable = errors.New("remote service unavailable")

// RemoteError is an error payload returned by a remote service. It is kept
// distinct from ErrUnavailable so the boundary can tell "the service said no"
// from "the service never answered".
type RemoteError struct {
	Service string `json:"-"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error (status %d): %s", e.Service, e.Status, e.Message)
}

// envelope is the reply frame used by the remote services: either the data
// payload or an error object.
type envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *RemoteError    `json:"error,omitempty"`
}

// Request performs one request/reply round trip over NATS with the given
// timeout, marshaling req to JSON and unmarshaling the reply data into resp.
func Request(
	ctx context.Context,
	conn *nats.Conn,
	service string,
	subject string,
	timeout time.Duration,
	req any,
	resp any,
) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", service, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, nats.ErrNoResponders) {
			return fmt.Errorf("%s: request to %q timed out: %w", service, subject, ErrUnavailable)
		}

		return fmt.Errorf("%s: request to %q failed: %w", service, subject, ErrUnavailable)
	}

	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return fmt.Errorf("%s: failed to decode reply: %w", service, err)
	}
	if env.Error != nil {
		env.Error.Service = service

		return env.Error
	}

	if resp != nil {
		if err := json.Unmarshal(env.Data, resp); err != nil {
			return fmt.Errorf("%s: failed to decode reply data: %w", service, err)
		}
	}

	return nil
}
