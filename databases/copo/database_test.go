package copo

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

const manifestCrate = `{
  "@context": "https://w3id.org/ro/crate/1.1/context",
  "@graph": [
    {"@id": "ro-crate-metadata.json", "@type": "CreativeWork", "about": {"@id": "./"}},
    {"@id": "./", "@type": "Dataset", "name": "COPO manifest 6543"}
  ]
}`

var server *httptest.Server

// this function gets called at the begіnning of a test session
func setup() {
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sample/biosampleAccession/SAMEA1":
			if r.URL.Query().Get("standard") != "tol" || r.URL.Query().Get("return_type") != "json" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"data": [{"copo_id": "c1", "manifest_id": "6543", "SPECIMEN_ID": "NHMUK1"}]}`))
		case "/sample/biosampleAccession/SAMEA2":
			w.Write([]byte(`{"data": [{"copo_id": "c2", "manifest_id": "1"}, {"copo_id": "c3", "manifest_id": "2"}]}`))
		case "/sample/biosampleAccession/SAMEA3":
			w.Write([]byte(`{"data": []}`))
		case "/sample/biosampleAccession/SAMEA5":
			w.Write([]byte(`{"data": [{"copo_id": "c5", "SPECIMEN_ID": "NHMUK5"}]}`))
		case "/sample/biosampleAccession/SAMEA429":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/sample/biosampleAccession/SAMEA403":
			w.WriteHeader(http.StatusForbidden)
		case "/manifest/6543":
			w.Write([]byte(manifestCrate))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// this function gets called after all tests have been run
func breakdown() {
	server.Close()
}

func TestFetchSample(t *testing.T) {
	assert := assert.New(t)
	db := New(server.URL, server.Client())
	record, err := db.Fetch(context.Background(), databases.Query{Accession: "SAMEA1"})
	assert.Nil(err)
	assert.Equal("c1", record.String("copo_id"))
	assert.Equal(server.URL+"/manifest/6543?return_type=rocrate", record.String("rocrate_uri"))

	document, err := db.LoadCrate(context.Background(), record.String("rocrate_uri"))
	assert.Nil(err)
	assert.Len(document["@graph"], 2)
}

func TestFetchAmbiguousSample(t *testing.T) {
	assert := assert.New(t)
	db := New(server.URL, server.Client())
	_, err := db.Fetch(context.Background(), databases.Query{Accession: "SAMEA2"})
	assert.IsType(&databases.AmbiguousResultError{}, err)
	assert.Equal([]string{"c2", "c3"}, err.(*databases.AmbiguousResultError).Matches)
}

func TestFetchMissingSample(t *testing.T) {
	assert := assert.New(t)
	db := New(server.URL, server.Client())
	for _, accession := range []string{"SAMEA3", "SAMEA4", "SAMEA5"} {
		_, err := db.Fetch(context.Background(), databases.Query{Accession: accession})
		assert.IsType(&databases.NotFoundError{}, err)
	}
	_, err := db.LoadCrate(context.Background(), server.URL+"/manifest/0?return_type=rocrate")
	assert.IsType(&databases.NotFoundError{}, err)
}

func TestFetchUpstreamUnavailable(t *testing.T) {
	assert := assert.New(t)
	db := New(server.URL, server.Client())
	for _, accession := range []string{"SAMEA429", "SAMEA403"} {
		_, err := db.Fetch(context.Background(), databases.Query{Accession: accession})
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
