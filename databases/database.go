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
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// names under which the provider databases are registered
const (
	ENA        = "ena"
	BOLD       = "bold"
	BioSamples = "biosamples"
	COPO       = "copo"
)

// ENA data sets that can be searched by accession
var enaResultTypes = []string{
	"sample", "read_experiment", "read_run", "assembly", "wgs_set", "analysis", "study",
}

// delimiter used by providers to pack list-typed fields into a single string
const ListDelimiter = ";"

// Query identifies a single record in a provider database.
type Query struct {
	// the name of the database being queried
	Database string
	// the provider-specific data set or record type (e.g. ENA's "sample")
	ResultType string
	// the accession (or free-text query) identifying the record
	Accession string
	// the field holding the accession within the result type (empty for
	// free-text queries)
	AccessionField string
}

// Checks that the query is complete enough to send.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Accession) == "" {
		return &InvalidQueryError{
			Database: q.Database,
			Message:  "no accession given",
		}
	}
	if strings.TrimSpace(q.ResultType) == "" {
		return &InvalidQueryError{
			Database: q.Database,
			Message:  fmt.Sprintf("no result type given for accession %s", q.Accession),
		}
	}
	if strings.Contains(q.Accession, `"`) {
		return &InvalidQueryError{
			Database: q.Database,
			Message:  fmt.Sprintf("accession %s contains a quote", q.Accession),
		}
	}
	if q.Database == ENA && !slices.Contains(enaResultTypes, q.ResultType) {
		return &InvalidQueryError{
			Database: q.Database,
			Message:  fmt.Sprintf("unknown result type '%s' for accession %s", q.ResultType, q.Accession),
		}
	}
	return nil
}

func (q Query) String() string {
	if q.AccessionField == "" {
		return fmt.Sprintf("result=%s query=%s", q.ResultType, q.Accession)
	}
	return fmt.Sprintf(`result=%s query=%s="%s"`, q.ResultType, q.AccessionField, q.Accession)
}

// Record holds the fields a provider returned for exactly one entity.
type Record map[string]any

// Returns true if the record has a non-empty value for the given field.
func (r Record) Has(field string) bool {
	return r.String(field) != ""
}

// Returns the given field as a string. List values are joined with the list
// delimiter; missing fields yield "".
func (r Record) String(field string) string {
	value, found := r[field]
	if !found || value == nil {
		return ""
	}
	switch v := value.(type) {
	case []any:
		return strings.Join(r.List(field), ListDelimiter)
	default:
		return scalarString(v)
	}
}

// Returns the given field as a list of strings. Strings are split on the list
// delimiter and empty entries are dropped; JSON arrays are returned element by
// element.
func (r Record) List(field string) []string {
	value, found := r[field]
	if !found || value == nil {
		return nil
	}
	var list []string
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if s := scalarString(item); s != "" {
				list = append(list, s)
			}
		}
	case string:
		for _, item := range strings.Split(v, ListDelimiter) {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	default:
		list = []string{scalarString(v)}
	}
	return list
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Database is a source of single records, identified by accession.
type Database interface {
	// fetches the single record matching the given query, returning a
	// NotFoundError if there is none and an AmbiguousResultError if there are
	// several
	Fetch(ctx context.Context, query Query) (Record, error)
}

// Given a list of records returned for a query, returns the only one. idField
// names the field used to enumerate conflicting records.
func SingleRecord(query Query, records []Record, idField string) (Record, error) {
	switch len(records) {
	case 1:
		return records[0], nil
	case 0:
		return nil, &NotFoundError{
			Database:  query.Database,
			Accession: query.Accession,
			Query:     query.String(),
		}
	default:
		matches := make([]string, len(records))
		for i, record := range records {
			matches[i] = record.String(idField)
		}
		return nil, &AmbiguousResultError{
			Database:  query.Database,
			Accession: query.Accession,
			Query:     query.String(),
			Matches:   matches,
		}
	}
}

// we maintain a table of database constructors, identified by their names
var allDatabases = make(map[string]func() (Database, error))
var allDatabasesMu sync.Mutex

// Registers a function that creates the database with the given name.
func RegisterDatabase(dbName string, createDb func() (Database, error)) error {
	allDatabasesMu.Lock()
	defer allDatabasesMu.Unlock()
	if _, found := allDatabases[dbName]; found {
		return &AlreadyRegisteredError{
			Database: dbName,
		}
	}
	allDatabases[dbName] = createDb
	return nil
}

// Creates the registered database with the given name.
func NewDatabase(dbName string) (Database, error) {
	allDatabasesMu.Lock()
	createDb, found := allDatabases[dbName]
	allDatabasesMu.Unlock()
	if !found {
		return nil, &UnknownDatabaseError{
			Database: dbName,
		}
	}
	return createDb()
}
