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
	"fmt"
	"strings"
)

// This error type is returned when a database is sought but not found.
type UnknownDatabaseError struct {
	Database string
}

func (e UnknownDatabaseError) Error() string {
	return fmt.Sprintf("The database '%s' was not found", e.Database)
}

// indicates that a database is already registered and an attempt has been made
// to register it again
type AlreadyRegisteredError struct {
	Database string
}

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("Cannot register database '%s': already registered", e.Database)
}

// This error type is returned when a query that must identify exactly one
// record matches none.
type NotFoundError struct {
	Database, Accession, Query string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("No record found for accession %s in database '%s' (query: %s)",
		e.Accession, e.Database, e.Query)
}

// This error type is returned when a query that must identify exactly one
// record matches several. The caller must not pick one of them.
type AmbiguousResultError struct {
	Database, Accession, Query string
	// accessions of all records that matched
	Matches []string
}

func (e AmbiguousResultError) Error() string {
	return fmt.Sprintf("Unexpectedly retrieved %d records for accession %s in database '%s' (query: %s): %s",
		len(e.Matches), e.Accession, e.Database, e.Query, strings.Join(e.Matches, ", "))
}

// This error type is returned when a free-text query cannot be resolved to any
// concrete search term.
type QueryBuildError struct {
	Database, Query, Message string
}

func (e QueryBuildError) Error() string {
	return fmt.Sprintf("Couldn't build a query for '%s' in database '%s': %s",
		e.Query, e.Database, e.Message)
}

// indicates that a database could not be reached, timed out, or reported a
// server-side failure
type UpstreamUnavailableError struct {
	Database, Resource, Message string
}

func (e UpstreamUnavailableError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Cannot reach database '%s' (%s): %s", e.Database, e.Resource, e.Message)
	}
	return fmt.Sprintf("Cannot reach database '%s' (%s): unavailable", e.Database, e.Resource)
}

// This error type is returned when a query is malformed before it is sent.
type InvalidQueryError struct {
	Database, Message string
}

func (e InvalidQueryError) Error() string {
	return fmt.Sprintf("Invalid query for database '%s': %s", e.Database, e.Message)
}

// this error type is emitted if an endpoint redirects an HTTPS request to an
// HTTP endpoint (it's NUTS that this can happen!)
type DowngradedRedirectError struct {
	Endpoint string
}

func (e DowngradedRedirectError) Error() string {
	return fmt.Sprintf("The endpoint %s is attempting to downgrade an HTTPS request to HTTP",
		e.Endpoint)
}
