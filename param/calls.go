package param

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kaijun101/mavros/errors"
)

// DefaultTimeout bounds both the readiness wait and the reply wait of a
// remote call.
const DefaultTimeout = 5 * time.Second

// Subscription is a live event subscription returned by Transport.Subscribe
type Subscription interface {
	Unsubscribe() error
}

// Transport is the request/reply and publish/subscribe surface the param
// package needs from the connection layer.
type Transport interface {
	// WaitForReady blocks until the transport can carry requests or ctx
	// expires.
	WaitForReady(ctx context.Context) error
	// Request sends data on subject and returns the reply payload.
	Request(subject string, data []byte, timeout time.Duration) ([]byte, error)
	// Subscribe delivers every payload published on subject to handler.
	Subscribe(subject string, handler func(data []byte)) (Subscription, error)
}

// call waits for the transport, sends the JSON-encoded request and decodes
// the JSON reply into resp. The same timeout bounds both waits.
func call(ctx context.Context, t Transport, subject string, timeout time.Duration, req, resp any) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := t.WaitForReady(readyCtx); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%s: %w", err, errors.ErrServiceUnavailable),
			"param", "call", "wait for transport")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return errors.WrapInvalid(err, "param", "call", "encode request")
	}

	reply, err := t.Request(subject, data, timeout)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(reply, resp); err != nil {
		return errors.WrapInvalid(err, "param", "call", "decode reply")
	}

	return nil
}

// remoteError converts a non-empty Error field from a reply into a classified
// error naming the call.
func remoteError(method, msg string) error {
	if msg == "" {
		return nil
	}
	return errors.WrapInvalid(
		fmt.Errorf("remote error: %s", msg),
		"param", method, "check reply")
}

// CallPull asks the remote end to refresh its parameter table from the
// vehicle. It returns how many parameters the remote end received.
func CallPull(ctx context.Context, t Transport, subjects Subjects, timeout time.Duration, forcePull bool) (int, error) {
	var resp PullResponse
	req := PullRequest{ForcePull: forcePull}
	if err := call(ctx, t, subjects.Pull, timeout, req, &resp); err != nil {
		return 0, err
	}
	if err := remoteError("CallPull", resp.Error); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, errors.WrapTransient(
			fmt.Errorf("pull did not complete: %w", errors.ErrServiceUnavailable),
			"param", "CallPull", "check reply")
	}
	return int(resp.ParamReceived), nil
}

// CallListParameters returns the names of all parameters the remote end
// knows, optionally filtered by prefixes.
func CallListParameters(ctx context.Context, t Transport, subjects Subjects, timeout time.Duration, prefixes []string) ([]string, error) {
	var resp ListResponse
	req := ListRequest{Prefixes: prefixes}
	if err := call(ctx, t, subjects.List, timeout, req, &resp); err != nil {
		return nil, err
	}
	if err := remoteError("CallListParameters", resp.Error); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// CallGetParameters fetches the current values of the named parameters. The
// result maps each requested name to its value; names the remote end answered
// with a KindUnknown value are omitted.
func CallGetParameters(ctx context.Context, t Transport, subjects Subjects, timeout time.Duration, names []string) (map[string]Value, error) {
	var resp GetResponse
	req := GetRequest{Names: names}
	if err := call(ctx, t, subjects.Get, timeout, req, &resp); err != nil {
		return nil, err
	}
	if err := remoteError("CallGetParameters", resp.Error); err != nil {
		return nil, err
	}
	if len(resp.Values) != len(names) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("requested %d values, got %d", len(names), len(resp.Values)),
			"param", "CallGetParameters", "check reply")
	}

	values := make(map[string]Value, len(names))
	for i, name := range names {
		if resp.Values[i].Kind() == KindUnknown {
			continue
		}
		values[name] = resp.Values[i]
	}
	return values, nil
}

// CallSetParameters writes the given parameters on the remote end. The result
// maps each parameter name to its individual outcome.
func CallSetParameters(ctx context.Context, t Transport, subjects Subjects, timeout time.Duration, params []Parameter) (map[string]SetResult, error) {
	var resp SetResponse
	req := SetRequest{Parameters: params}
	if err := call(ctx, t, subjects.Set, timeout, req, &resp); err != nil {
		return nil, err
	}
	if err := remoteError("CallSetParameters", resp.Error); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(params) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("set %d parameters, got %d results", len(params), len(resp.Results)),
			"param", "CallSetParameters", "check reply")
	}

	results := make(map[string]SetResult, len(params))
	for i, p := range params {
		results[p.Name] = resp.Results[i]
	}
	return results, nil
}
