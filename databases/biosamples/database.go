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

// Package biosamples fetches sample records from the EBI BioSamples API.
package biosamples

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

// the only result type BioSamples serves
const SamplesResultType = "samples"

// prefix of the record fields holding links
const linkPrefix = "_links."

// BioSamples database (implements the databases.Database interface)
type Database struct {
	// HTTP client used for all requests
	Client *http.Client
	// base URL of the API (with trailing slash)
	BaseURL string
}

// Creates a BioSamples database using the configured base URL and timeout.
func NewDatabase() (databases.Database, error) {
	return New(config.DatabaseURL(databases.BioSamples),
		databases.NewHttpClient(config.RequestTimeout())), nil
}

// Creates a BioSamples database that sends requests to the given base URL
// with the given client.
func New(baseURL string, client *http.Client) *Database {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Database{
		Client:  client,
		BaseURL: baseURL,
	}
}

// a single characteristic value
type characteristic struct {
	Text          string   `json:"text"`
	OntologyTerms []string `json:"ontologyTerms,omitempty"`
	Unit          string   `json:"unit,omitempty"`
}

type link struct {
	Href string `json:"href"`
}

// partial representation of a BioSamples sample, including only fields we use
type sample struct {
	Name            string                      `json:"name"`
	Accession       string                      `json:"accession"`
	Status          string                      `json:"status"`
	Release         string                      `json:"release"`
	Update          string                      `json:"update"`
	TaxId           json.Number                 `json:"taxId"`
	Characteristics map[string][]characteristic `json:"characteristics"`
	Links           map[string]link             `json:"_links"`
}

// Fetches the sample with the query's accession. The record carries the
// sample's top-level fields, one field per characteristic (multiple values
// joined by the list delimiter) and one "_links.<rel>" field per link.
func (db Database) Fetch(ctx context.Context, query databases.Query) (databases.Record, error) {
	query.Database = databases.BioSamples
	if query.ResultType == "" {
		query.ResultType = SamplesResultType
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	resource := fmt.Sprintf("%ssamples/%s", db.BaseURL, url.PathEscape(query.Accession))
	status, body, err := databases.Get(ctx, db.Client, databases.BioSamples, resource,
		"application/hal+json")
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden: // private samples are reported as forbidden
		return nil, &databases.NotFoundError{
			Database:  databases.BioSamples,
			Accession: query.Accession,
			Query:     resource,
		}
	default:
		return nil, databases.UnexpectedStatus(databases.BioSamples, resource, status)
	}

	var s sample
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("Couldn't decode BioSamples record for %s: %w", query.Accession, err)
	}
	if s.Accession != "" && s.Accession != query.Accession {
		return nil, &databases.AmbiguousResultError{
			Database:  databases.BioSamples,
			Accession: query.Accession,
			Query:     resource,
			Matches:   []string{s.Accession},
		}
	}
	return flatten(s), nil
}

func flatten(s sample) databases.Record {
	record := databases.Record{
		"name":      s.Name,
		"accession": s.Accession,
		"status":    s.Status,
		"release":   s.Release,
		"update":    s.Update,
	}
	if s.TaxId != "" {
		record["taxId"] = s.TaxId.String()
	}
	for key, values := range s.Characteristics {
		texts := make([]string, 0, len(values))
		for _, value := range values {
			if value.Text != "" {
				texts = append(texts, value.Text)
			}
		}
		record[key] = strings.Join(texts, databases.ListDelimiter)
	}
	for rel, l := range s.Links {
		record[linkPrefix+rel] = l.Href
	}
	return record
}
