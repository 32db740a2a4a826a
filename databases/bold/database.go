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

// Package bold fetches single records from the Barcode of Life Data System
// portal API. BOLD has no direct accession lookup: a free-text query is first
// resolved into search terms, which are then used to create a server-side
// query whose documents are retrieved.
package bold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bge-barcoding/bgecrate/config"
	"github.com/bge-barcoding/bgecrate/databases"
)

// the result type for BOLD specimen/sequence records
const RecordsResultType = "records"

// the field used to enumerate conflicting records
const idField = "processid"

// BOLD returns at most this many documents for a query
const documentLimit = 10

// separator between terms in a BOLD query string
const termSeparator = ";"

// BOLD portal database (implements the databases.Database interface)
type Database struct {
	// HTTP client used for all requests
	Client *http.Client
	// base URL of the portal API (with trailing slash)
	BaseURL string
}

// Creates a BOLD database using the configured base URL and timeout.
func NewDatabase() (databases.Database, error) {
	return New(config.DatabaseURL(databases.BOLD),
		databases.NewHttpClient(config.RequestTimeout())), nil
}

// Creates a BOLD database that sends requests to the given base URL with the
// given client.
func New(baseURL string, client *http.Client) *Database {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Database{
		Client:  client,
		BaseURL: baseURL,
	}
}

// Fetches the single BOLD record matching the query's accession. If the query
// has an accession field (e.g. "ids:sampleid"), the accession is searched
// within that field; otherwise BOLD is asked to interpret it.
func (db Database) Fetch(ctx context.Context, query databases.Query) (databases.Record, error) {
	query.Database = databases.BOLD
	if query.ResultType == "" {
		query.ResultType = RecordsResultType
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var terms []string
	if query.AccessionField != "" {
		terms = []string{fmt.Sprintf("%s:%s", query.AccessionField, query.Accession)}
	} else {
		var err error
		terms, err = db.parse(ctx, query)
		if err != nil {
			return nil, err
		}
	}
	matched, err := db.preprocess(ctx, query, terms)
	if err != nil {
		return nil, err
	}
	queryId, err := db.createQuery(ctx, query, matched)
	if err != nil {
		return nil, err
	}
	records, err := db.documents(ctx, query, queryId)
	if err != nil {
		return nil, err
	}
	return databases.SingleRecord(query, records, idField)
}

type parseResponse struct {
	Terms []string `json:"terms"`
}

// splits a free-text query into search terms
func (db Database) parse(ctx context.Context, query databases.Query) ([]string, error) {
	p := url.Values{}
	p.Add("query", query.Accession)
	var response parseResponse
	if err := db.getJSON(ctx, query, "query/parse", p, &response); err != nil {
		return nil, err
	}
	var terms []string
	for _, term := range response.Terms {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, &databases.QueryBuildError{
			Database: databases.BOLD,
			Query:    query.Accession,
			Message:  "no search terms could be parsed",
		}
	}
	return terms, nil
}

// a term that BOLD resolved to one or more candidate search terms
type matchedTerm struct {
	Original string `json:"original"`
	// either a single candidate or a list of them
	Matched json.RawMessage `json:"matched"`
}

func (t matchedTerm) candidates() []string {
	var single string
	if err := json.Unmarshal(t.Matched, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var several []string
	json.Unmarshal(t.Matched, &several)
	return several
}

type preprocessorResponse struct {
	SuccessfulTerms []matchedTerm `json:"successful_terms"`
	FailedTerms     []matchedTerm `json:"failed_terms"`
}

// resolves search terms into concrete BOLD terms, choosing the first
// candidate for any term with several
func (db Database) preprocess(ctx context.Context, query databases.Query, terms []string) ([]string, error) {
	p := url.Values{}
	p.Add("query", strings.Join(terms, termSeparator))
	var response preprocessorResponse
	if err := db.getJSON(ctx, query, "query/preprocessor", p, &response); err != nil {
		return nil, err
	}
	for _, failed := range response.FailedTerms {
		slog.Warn(fmt.Sprintf("BOLD could not resolve term '%s' for %s", failed.Original, query.Accession))
	}
	var matched []string
	for _, term := range response.SuccessfulTerms {
		candidates := term.candidates()
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > 1 {
			slog.Warn(fmt.Sprintf("BOLD term '%s' matched %d candidates (%s); using '%s'",
				term.Original, len(candidates), strings.Join(candidates, ", "), candidates[0]))
		}
		matched = append(matched, candidates[0])
	}
	if len(matched) == 0 {
		return nil, &databases.QueryBuildError{
			Database: databases.BOLD,
			Query:    query.Accession,
			Message:  fmt.Sprintf("none of the terms [%s] matched", strings.Join(terms, ", ")),
		}
	}
	return matched, nil
}

type queryResponse struct {
	QueryId string `json:"query_id"`
}

// creates a server-side query for the given terms, returning its ID
func (db Database) createQuery(ctx context.Context, query databases.Query, terms []string) (string, error) {
	p := url.Values{}
	p.Add("query", strings.Join(terms, termSeparator))
	p.Add("extent", "full")
	var response queryResponse
	if err := db.getJSON(ctx, query, "query", p, &response); err != nil {
		return "", err
	}
	if response.QueryId == "" {
		return "", &databases.QueryBuildError{
			Database: databases.BOLD,
			Query:    query.Accession,
			Message:  "no query ID was returned",
		}
	}
	return response.QueryId, nil
}

type documentsResponse struct {
	Data []databases.Record `json:"data"`
}

// retrieves the documents for the query with the given ID
func (db Database) documents(ctx context.Context, query databases.Query, queryId string) ([]databases.Record, error) {
	p := url.Values{}
	p.Add("length", fmt.Sprintf("%d", documentLimit))
	p.Add("start", "0")
	var response documentsResponse
	resource := fmt.Sprintf("documents/%s", url.PathEscape(queryId))
	if err := db.getJSON(ctx, query, resource, p, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// sends a GET request for the given resource and decodes the JSON response
func (db Database) getJSON(ctx context.Context, query databases.Query, resource string,
	values url.Values, v any) error {
	u := fmt.Sprintf("%s%s?%s", db.BaseURL, resource, values.Encode())
	status, body, err := databases.Get(ctx, db.Client, databases.BOLD, u, "application/json")
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &databases.QueryBuildError{
			Database: databases.BOLD,
			Query:    query.Accession,
			Message:  fmt.Sprintf("%s rejected the query: %s", resource, strings.TrimSpace(string(body))),
		}
	case http.StatusNotFound:
		return &databases.NotFoundError{
			Database:  databases.BOLD,
			Accession: query.Accession,
			Query:     query.String(),
		}
	default:
		return databases.UnexpectedStatus(databases.BOLD, u, status)
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("Couldn't decode BOLD response from %s: %w", resource, err)
	}
	return nil
}
