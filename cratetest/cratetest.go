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

// This package contains testing utilities for the crate assembler.
package cratetest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/piprate/json-gold/ld"

	"github.com/bge-barcoding/bgecrate/databases"
)

// Enables DEBUG log messages for the assembler's structured log (slog).
func EnableDebugLogging() {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelDebug)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
}

//------------------------
// Database Test Fixtures
//------------------------

// This type implements a databases.Database test fixture that serves records
// from memory. Any number of records can be stored for a query, so fixtures
// can reproduce missing and ambiguous results.
type Database struct {
	// name reported in errors
	Name string

	mu      sync.Mutex
	records map[string][]databases.Record
	failure map[string]error
	// every query received, in order
	queries []databases.Query
}

func queryKey(resultType, accessionField, accession string) string {
	return fmt.Sprintf("%s|%s|%s", resultType, accessionField, accession)
}

// Creates an empty database fixture with the given name.
func NewDatabase(name string) *Database {
	return &Database{
		Name:    name,
		records: make(map[string][]databases.Record),
		failure: make(map[string]error),
	}
}

// Stores the records returned for the given query.
func (db *Database) Add(resultType, accessionField, accession string, records ...databases.Record) *Database {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := queryKey(resultType, accessionField, accession)
	db.records[key] = append(db.records[key], records...)
	return db
}

// Makes the given query fail with the given error.
func (db *Database) Fail(resultType, accessionField, accession string, err error) *Database {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failure[queryKey(resultType, accessionField, accession)] = err
	return db
}

// Returns all queries received so far.
func (db *Database) Queries() []databases.Query {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]databases.Query{}, db.queries...)
}

func (db *Database) Fetch(ctx context.Context, query databases.Query) (databases.Record, error) {
	query.Database = db.Name
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &databases.UpstreamUnavailableError{
			Database: db.Name,
			Resource: query.String(),
			Message:  err.Error(),
		}
	}

	db.mu.Lock()
	db.queries = append(db.queries, query)
	key := queryKey(query.ResultType, query.AccessionField, query.Accession)
	err := db.failure[key]
	records := db.records[key]
	db.mu.Unlock()

	if err != nil {
		return nil, err
	}
	idField := query.AccessionField
	if idField == "" {
		idField = "accession"
	}
	return databases.SingleRecord(query, records, idField)
}

// Registers the given database fixture under the given name.
func RegisterDatabase(databaseName string, db *Database) error {
	return databases.RegisterDatabase(databaseName, func() (databases.Database, error) {
		return db, nil
	})
}

//---------------------------
// JSON-LD Context Fixtures
//---------------------------

// the RO-Crate 1.1 context URL, served by ContextLoader
const ROCrateContextURL = "https://w3id.org/ro/crate/1.1/context"

// schema.org and Dublin Core terms used by the assembler's crates
var roCrateTerms = map[string]any{
	"Taxon":                 "http://schema.org/Taxon",
	"Collection":            "http://schema.org/Collection",
	"CreateAction":          "http://schema.org/CreateAction",
	"Dataset":               "http://schema.org/Dataset",
	"File":                  "http://schema.org/MediaObject",
	"Organization":          "http://schema.org/Organization",
	"Place":                 "http://schema.org/Place",
	"CreativeWork":          "http://schema.org/CreativeWork",
	"ComputationalWorkflow": "https://bioschemas.org/ComputationalWorkflow",
	"SoftwareSourceCode":    "http://schema.org/SoftwareSourceCode",
	"BioChemEntity":         "http://schema.org/BioChemEntity",
	"about":                 "http://schema.org/about",
	"agent":                 "http://schema.org/agent",
	"conformsTo":            "http://purl.org/dc/terms/conformsTo",
	"contentSize":           "http://schema.org/contentSize",
	"contentUrl":            "http://schema.org/contentUrl",
	"contributor":           "http://schema.org/contributor",
	"datePublished":         "http://schema.org/datePublished",
	"description":           "http://schema.org/description",
	"encodingFormat":        "http://schema.org/encodingFormat",
	"endDate":               "http://schema.org/endDate",
	"endTime":               "http://schema.org/endTime",
	"geo":                   "http://schema.org/geo",
	"hasPart":               "http://schema.org/hasPart",
	"hasRepresentation":     "http://schema.org/hasRepresentation",
	"identifier":            "http://schema.org/identifier",
	"instrument":            "http://schema.org/instrument",
	"isPartOf":              "http://schema.org/isPartOf",
	"license":               "http://schema.org/license",
	"location":              "http://schema.org/location",
	"mainEntity":            "http://schema.org/mainEntity",
	"mentions":              "http://schema.org/mentions",
	"model":                 "http://schema.org/model",
	"name":                  "http://schema.org/name",
	"object":                "http://schema.org/object",
	"parentTaxon":           "http://schema.org/parentTaxon",
	"programmingLanguage":   "http://schema.org/programmingLanguage",
	"provider":              "http://schema.org/provider",
	"result":                "http://schema.org/result",
	"sameAs":                "http://schema.org/sameAs",
	"scientificName":        "http://rs.tdwg.org/dwc/terms/scientificName",
	"sdDatePublished":       "http://schema.org/sdDatePublished",
	"taxonRank":             "http://schema.org/taxonRank",
	"taxonomicRange":        "http://schema.org/taxonomicRange",
	"url":                   "http://schema.org/url",
	"version":               "http://schema.org/version",
}

// This type implements a JSON-LD document loader that serves a subset of the
// RO-Crate 1.1 context without network access.
type ContextLoader struct {
	// URLs requested so far
	Requested []string
}

func (l *ContextLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	l.Requested = append(l.Requested, u)
	if u != ROCrateContextURL {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, fmt.Sprintf("no fixture for %s", u))
	}
	return &ld.RemoteDocument{
		DocumentURL: u,
		Document:    map[string]any{"@context": roCrateTerms},
	}, nil
}
