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

// Package copo fetches sample manifests from the Collaborative OPen Omics
// (COPO) API, which publishes each manifest as a detached RO-Crate.
package copo

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

// the result type for COPO samples
const SampleResultType = "sample"

// the sample standard under which manifests are searched
const standard = "tol"

// COPO database (implements the databases.Database interface)
type Database struct {
	// HTTP client used for all requests
	Client *http.Client
	// base URL of the API (with trailing slash)
	BaseURL string
}

// Creates a COPO database using the configured base URL and timeout.
func NewDatabase() (databases.Database, error) {
	return New(config.DatabaseURL(databases.COPO),
		databases.NewHttpClient(config.RequestTimeout())), nil
}

// Creates a COPO database that sends requests to the given base URL with the
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

type samplesResponse struct {
	Data []databases.Record `json:"data"`
}

// Fetches the COPO sample with the given BioSamples accession. In addition to
// COPO's fields, the record has a "rocrate_uri" field giving the location of
// the sample's manifest crate.
func (db Database) Fetch(ctx context.Context, query databases.Query) (databases.Record, error) {
	query.Database = databases.COPO
	if query.ResultType == "" {
		query.ResultType = SampleResultType
	}
	if query.AccessionField == "" {
		query.AccessionField = "biosampleAccession"
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	p := url.Values{}
	p.Add("standard", standard)
	p.Add("return_type", "json")
	resource := fmt.Sprintf("%s%s/%s/%s?%s", db.BaseURL, query.ResultType, query.AccessionField,
		url.PathEscape(query.Accession), p.Encode())
	body, err := db.get(ctx, query, resource)
	if err != nil {
		return nil, err
	}
	var response samplesResponse
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&response); err != nil {
		return nil, fmt.Errorf("Couldn't decode COPO samples for %s: %w", query.Accession, err)
	}
	record, err := databases.SingleRecord(query, response.Data, "copo_id")
	if err != nil {
		return nil, err
	}
	if !record.Has("manifest_id") {
		return nil, &databases.NotFoundError{
			Database:  databases.COPO,
			Accession: query.Accession,
			Query:     fmt.Sprintf("%s (no manifest)", query),
		}
	}
	record["rocrate_uri"] = db.CrateURI(record.String("manifest_id"))
	return record, nil
}

// Returns the location of the RO-Crate for the manifest with the given ID.
func (db Database) CrateURI(manifestId string) string {
	return fmt.Sprintf("%smanifest/%s?return_type=rocrate", db.BaseURL, url.PathEscape(manifestId))
}

// Retrieves the RO-Crate metadata document at the given URI.
func (db Database) LoadCrate(ctx context.Context, uri string) (map[string]any, error) {
	body, err := db.get(ctx, databases.Query{
		Database:  databases.COPO,
		Accession: uri,
	}, uri)
	if err != nil {
		return nil, err
	}
	var document map[string]any
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, fmt.Errorf("Couldn't decode COPO crate at %s: %w", uri, err)
	}
	if _, found := document["@graph"]; !found {
		return nil, fmt.Errorf("COPO crate at %s has no @graph", uri)
	}
	return document, nil
}

func (db Database) get(ctx context.Context, query databases.Query, resource string) ([]byte, error) {
	status, body, err := databases.Get(ctx, db.Client, databases.COPO, resource, "application/json")
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, &databases.NotFoundError{
			Database:  databases.COPO,
			Accession: query.Accession,
			Query:     resource,
		}
	default:
		return nil, databases.UnexpectedStatus(databases.COPO, resource, status)
	}
}
