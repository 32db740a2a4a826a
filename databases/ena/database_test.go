package ena

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bge-barcoding/bgecrate/databases"
)

// canned ENA portal responses, keyed by the query parameter
var searchResponses = map[string]string{
	`sample_accession="S1"`: `[{"sample_accession": "S1", "location": "Spain", "collected_by": "X"}]`,
	`assembly_set_accession="GCA_1"`: `[
	  {"assembly_accession": "GCA_1.1", "assembly_set_accession": "GCA_1"},
	  {"assembly_accession": "GCA_1.2", "assembly_set_accession": "GCA_1"}
	]`,
	`experiment_accession="E1"`: `[{
	  "experiment_accession": "E1",
	  "sample_accession": "S1",
	  "fastq_ftp": "ftp.sra.ebi.ac.uk/a_1.fastq.gz;ftp.sra.ebi.ac.uk/a_2.fastq.gz",
	  "fastq_bytes": "10;20",
	  "tax_id": 934814
	}]`,
	`accession="empty"`: `[]`,
}

var server *httptest.Server
var requests []*http.Request

// this function gets called at the begіnning of a test session
func setup() {
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r)
		if r.URL.Path != "/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		query := r.URL.Query().Get("query")
		switch query {
		case `accession="bad"`:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message": "Invalid query"}`))
		case `accession="down"`:
			w.WriteHeader(http.StatusServiceUnavailable)
		case `accession="busy"`:
			w.WriteHeader(http.StatusTooManyRequests)
		case `accession="moved"`:
			w.WriteHeader(http.StatusFound)
		case `accession="forbidden"`:
			w.WriteHeader(http.StatusForbidden)
		default:
			if response, found := searchResponses[query]; found {
				w.Write([]byte(response))
			} else {
				w.WriteHeader(http.StatusNoContent)
			}
		}
	}))
}

// this function gets called after all tests have been run
func breakdown() {
	server.Close()
}

func newTestDatabase() *Database {
	return New(server.URL, server.Client())
}

func TestNewDatabase(t *testing.T) {
	assert := assert.New(t)
	db, err := NewDatabase()
	assert.Nil(err)
	assert.NotNil(db)
	assert.Equal("https://www.ebi.ac.uk/ena/portal/api/", db.(*Database).BaseURL)
}

func TestFetchSingleRecord(t *testing.T) {
	assert := assert.New(t)
	db := newTestDatabase()
	record, err := db.Fetch(context.Background(), databases.Query{
		ResultType:     "sample",
		Accession:      "S1",
		AccessionField: "sample_accession",
	})
	assert.Nil(err)
	assert.Equal("Spain", record.String("location"))
	assert.Equal("X", record.String("collected_by"))

	last := requests[len(requests)-1]
	assert.Equal("sample", last.URL.Query().Get("result"))
	assert.Equal("all", last.URL.Query().Get("fields"))
	assert.Equal("json", last.URL.Query().Get("format"))
	assert.Equal("10", last.URL.Query().Get("limit"))
}

func TestFetchSplitsListFields(t *testing.T) {
	assert := assert.New(t)
	db := newTestDatabase()
	record, err := db.Fetch(context.Background(), databases.Query{
		ResultType:     "read_experiment",
		Accession:      "E1",
		AccessionField: "experiment_accession",
	})
	assert.Nil(err)
	assert.Equal([]string{"ftp.sra.ebi.ac.uk/a_1.fastq.gz", "ftp.sra.ebi.ac.uk/a_2.fastq.gz"},
		record.List("fastq_ftp"))
	assert.Equal([]string{"10", "20"}, record.List("fastq_bytes"))
	assert.Equal("934814", record.String("tax_id"))
}

func TestFetchNoRecords(t *testing.T) {
	assert := assert.New(t)
	db := newTestDatabase()
	for _, accession := range []string{"empty", "nothing-here"} {
		record, err := db.Fetch(context.Background(), databases.Query{
			ResultType: "sample",
			Accession:  accession,
		})
		assert.Nil(record)
		assert.IsType(&databases.NotFoundError{}, err)
		assert.Contains(err.Error(), accession)
	}
}

func TestFetchAmbiguousRecords(t *testing.T) {
	assert := assert.New(t)
	db := newTestDatabase()
	_, err := db.Fetch(context.Background(), databases.Query{
		ResultType:     "assembly",
		Accession:      "GCA_1",
		AccessionField: "assembly_set_accession",
	})
	assert.IsType(&databases.AmbiguousResultError{}, err)
	assert.Equal([]string{"GCA_1.1", "GCA_1.2"}, err.(*databases.AmbiguousResultError).Matches)
	assert.Contains(err.Error(), "GCA_1.2")
}

func TestIdFields(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("sample_accession", idField("sample"))
	assert.Equal("experiment_accession", idField("read_experiment"))
	assert.Equal("assembly_accession", idField("assembly"))
	assert.Equal("accession", idField("wgs_set"))
}

func TestFetchRejectsBadQueries(t *testing.T) {
	assert := assert.New(t)
	db := newTestDatabase()
	before := len(requests)
	_, err := db.Fetch(context.Background(), databases.Query{ResultType: "sample"})
	assert.IsType(&databases.InvalidQueryError{}, err)
	_, err = db.Fetch(context.Background(), databases.Query{ResultType: "specimen", Accession: "S1"})
	assert.IsType(&databases.InvalidQueryError{}, err)
	_, err = db.Fetch(context.Background(), databases.Query{ResultType: "sample", Accession: `S1" OR tax_id="1`})
	assert.IsType(&databases.InvalidQueryError{}, err)
	assert.Equal(before, len(requests), "invalid queries should not be sent")

	_, err = db.Fetch(context.Background(), databases.Query{ResultType: "sample", Accession: "bad"})
	assert.IsType(&databases.InvalidQueryError{}, err)
	assert.Contains(err.Error(), "Invalid query")
}

func TestFetchUpstreamUnavailable(t *testing.T) {
	assert := assert.New(t)
	db := newTestDatabase()
	for _, accession := range []string{"down", "busy", "moved", "forbidden"} {
		_, err := db.Fetch(context.Background(), databases.Query{ResultType: "sample", Accession: accession})
		var unavailable *databases.UpstreamUnavailableError
		assert.True(errors.As(err, &unavailable), accession)
	}
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}
