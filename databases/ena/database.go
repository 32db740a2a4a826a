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

// Package ena fetches single records from the European Nucleotide Archive's
// portal search API.
package ena

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bge-barcoding/bgecrate/config"
	"github.com/bge-barcoding/bgecrate/databases"
)

// ENA accepts at most this many records per search; more than one is already
// an error, but the limit keeps malformed queries from returning entire data
// sets
const searchLimit = 10

// default search field within a result type
const defaultAccessionField = "accession"

// fields identifying a record of each result type, used to enumerate the
// records matching an ambiguous query
var idFields = map[string]string{
	"sample":          "sample_accession",
	"read_experiment": "experiment_accession",
	"read_run":        "run_accession",
	"assembly":        "assembly_accession",
	"wgs_set":         "accession",
	"analysis":        "analysis_accession",
	"study":           "study_accession",
}

// returns the field identifying records of the given result type
func idField(resultType string) string {
	if field, found := idFields[resultType]; found {
		return field
	}
	return defaultAccessionField
}

// ENA portal database (implements the databases.Database interface)
type Database struct {
	// HTTP client used for all requests
	Client *http.Client
	// base URL of the portal API (with trailing slash)
	BaseURL string
}

// Creates an ENA database using the configured base URL and timeout.
func NewDatabase() (databases.Database, error) {
	return New(config.DatabaseURL(databases.ENA),
		databases.NewHttpClient(config.RequestTimeout())), nil
}

// Creates an ENA database that sends requests to the given base URL with the
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

func (db Database) Fetch(ctx context.Context, query databases.Query) (databases.Record, error) {
	query.Database = databases.ENA
	if query.AccessionField == "" {
		query.AccessionField = defaultAccessionField
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	records, err := db.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return databases.SingleRecord(query, records, idField(query.ResultType))
}

// error payload returned by the portal API for bad requests
type searchError struct {
	Message string `json:"message"`
}

func (db Database) search(ctx context.Context, query databases.Query) ([]databases.Record, error) {
	p := url.Values{}
	p.Add("result", query.ResultType)
	p.Add("query", fmt.Sprintf(`%s="%s"`, query.AccessionField, query.Accession))
	p.Add("fields", "all")
	p.Add("format", "json")
	p.Add("limit", fmt.Sprintf("%d", searchLimit))
	resource := fmt.Sprintf("%ssearch?%s", db.BaseURL, p.Encode())

	status, body, err := databases.Get(ctx, db.Client, databases.ENA, resource, "application/json")
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNoContent: // no matching records
		return nil, nil
	case http.StatusBadRequest:
		var searchErr searchError
		if json.Unmarshal(body, &searchErr) != nil || searchErr.Message == "" {
			searchErr.Message = string(body)
		}
		return nil, &databases.InvalidQueryError{
			Database: databases.ENA,
			Message:  fmt.Sprintf("%s (%s)", searchErr.Message, query),
		}
	default:
		return nil, databases.UnexpectedStatus(databases.ENA, resource, status)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var records []databases.Record
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("Couldn't decode ENA records for %s: %w", query.Accession, err)
	}
	return records, nil
}
