// Package dispatch submits work items to remote hosts.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackadi-io/configmanager/internal/manager/inventory"
)

var ErrDispatchFailed = errors.New("dispatch failed")

// Client submits one work item and returns the token correlating its future completion.
type Client interface {
	Dispatch(ctx context.Context, account string, host inventory.Host, payload string) (string, error)
}

type Request struct {
	Account string
	Host    inventory.Host
	Payload string
}

// Result is the outcome of one submission: either Token or Err is set.
type Result struct {
	Host  inventory.Host
	Token string
	Err   error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Fanout submits all requests concurrently, each bounded by timeout.
//
// onResult, when not nil, is called from the submitting goroutine as soon as
// that request completes, so one slow host never delays the handling of the
// others. It must be safe for concurrent use.
// Results are returned in request order.
func Fanout(ctx context.Context, client Client, timeout time.Duration, requests []Request, onResult func(Result)) []Result {
	results := make([]Result, len(requests))

	wg := sync.WaitGroup{}
	for i, req := range requests {
		wg.Go(func() {
			res := submit(ctx, client, timeout, req)
			if onResult != nil {
				onResult(res)
			}
			results[i] = res
		})
	}
	wg.Wait()

	return results
}

func submit(ctx context.Context, client Client, timeout time.Duration, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := Result{Host: req.Host}
	token, err := client.Dispatch(ctx, req.Account, req.Host, req.Payload)
	switch {
	case err != nil && errors.Is(err, ErrDispatchFailed):
		res.Err = err
	case err != nil:
		res.Err = fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	case token == "":
		res.Err = fmt.Errorf("%w: empty token", ErrDispatchFailed)
	default:
		res.Token = token
	}
	return res
}
