// Copyright (c) 2023 The KBase Project and its Contributors
// Copyright (c) 2023 Cohere Consulting, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package databases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/StalkR/hsts"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

// Here's a secure HTTP client that can be used to connect to databases. It
// sets a reasonable timeout and enables HTTP Strict Transport Security (HSTS).
func SecureHttpClient(timeout time.Duration) http.Client {
	client := http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Scheme == "http" {
				return &DowngradedRedirectError{
					Endpoint: fmt.Sprintf("%s%s", req.URL.Host, req.URL.Path),
				}
			}
			return http.ErrUseLastResponse
		},
	}
	client.Transport = hsts.New(client.Transport) // enable HSTS
	return client
}

// when set, all database traffic is recorded to (or replayed from) a cassette
var vcr *recorder.Recorder
var vcrMu sync.Mutex

// Routes all clients subsequently created by NewHttpClient through a cassette
// with the given name. If record is true, real responses are captured to the
// cassette; otherwise responses are replayed from it and no network traffic
// occurs.
func StartRecording(cassette string, record bool) error {
	vcrMu.Lock()
	defer vcrMu.Unlock()
	if vcr != nil {
		return fmt.Errorf("Already recording to a cassette")
	}
	mode := recorder.ModeReplayOnly
	if record {
		mode = recorder.ModeRecordOnly
	}
	rec, err := recorder.NewWithOptions(&recorder.Options{
		CassetteName:  cassette,
		Mode:          mode,
		RealTransport: hsts.New(nil),
	})
	if err != nil {
		return err
	}
	slog.Debug(fmt.Sprintf("Using HTTP cassette %s (record: %t)", cassette, record))
	vcr = rec
	return nil
}

// Stops recording (or replaying), saving any captured interactions.
func StopRecording() error {
	vcrMu.Lock()
	defer vcrMu.Unlock()
	if vcr == nil {
		return nil
	}
	err := vcr.Stop()
	vcr = nil
	return err
}

// Runs f with all clients created by NewHttpClient routed through the given
// cassette (see StartRecording). Returns the error from f, joined with any
// error saving the cassette.
func WithCassette(cassette string, record bool, f func() error) error {
	if err := StartRecording(cassette, record); err != nil {
		return err
	}
	err := f()
	if stopErr := StopRecording(); stopErr != nil {
		return errors.Join(err, fmt.Errorf("Couldn't save HTTP cassette %s: %w", cassette, stopErr))
	}
	return err
}

// Creates a secure HTTP client for use by a database, honoring any active
// cassette.
func NewHttpClient(timeout time.Duration) *http.Client {
	client := SecureHttpClient(timeout)
	vcrMu.Lock()
	if vcr != nil {
		client.Transport = vcr
	}
	vcrMu.Unlock()
	return &client
}

// Performs a GET request on behalf of the named database, returning the status
// code and body of the response. Transport failures, timeouts, throttling and
// server-side errors are reported as UpstreamUnavailableErrors. Other status
// codes are left to the caller.
func Get(ctx context.Context, client *http.Client, database, resource, accept string) (int, []byte, error) {
	slog.Debug(fmt.Sprintf("GET: %s", resource))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	if accept != "" {
		req.Header.Add("Accept", accept)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &UpstreamUnavailableError{
			Database: database,
			Resource: resource,
			Message:  transportFailure(err),
		}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &UpstreamUnavailableError{
			Database: database,
			Resource: resource,
			Message:  transportFailure(err),
		}
	}
	if unavailable(resp.StatusCode) {
		return resp.StatusCode, nil, &UpstreamUnavailableError{
			Database: database,
			Resource: resource,
			Message:  resp.Status,
		}
	}
	return resp.StatusCode, body, nil
}

// returns true if the status code means the upstream cannot answer right now
func unavailable(status int) bool {
	return status >= http.StatusInternalServerError ||
		status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests
}

// Returns an UpstreamUnavailableError for a response whose status code the
// named database does not handle. Redirects land here too, since database
// clients do not follow them.
func UnexpectedStatus(database, resource string, status int) error {
	return &UpstreamUnavailableError{
		Database: database,
		Resource: resource,
		Message:  fmt.Sprintf("unexpected status %d (%s)", status, http.StatusText(status)),
	}
}

func transportFailure(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timed out"
	}
	return err.Error()
}
