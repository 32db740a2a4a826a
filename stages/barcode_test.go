package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/cratetest"
	"github.com/bge-barcoding/bgecrate/credit"
	"github.com/bge-barcoding/bgecrate/databases"
	"github.com/bge-barcoding/bgecrate/identifiers"
)

// returns a BOLD fixture holding the specimen and process records of a single
// barcoding process
func boldFixture() *cratetest.Database {
	bold := cratetest.NewDatabase(databases.BOLD)
	bold.Add("records", ProcessIdField, "MHMXN361-07", databases.Record{
		"processid":            "MHMXN361-07",
		"sampleid":             "BIOUG00001-A01",
		"record_id":            "MHMXN361-07.COI-5P",
		"species":              "Culex laticinctus",
		"taxid":                "304734",
		"insdc_acs":            "GU123456",
		"nuc":                  "AACATTATATTTTATTTTTGGAAT",
		"sequence_run_site":    "Centre for Biodiversity Genomics",
		"sequence_upload_date": "2008-03-17",
	})
	bold.Add("records", SampleIdField, "BIOUG00001-A01", databases.Record{
		"processid":             "MHMXN361-07",
		"sampleid":              "BIOUG00001-A01",
		"coord":                 []any{"43.73", "-79.43"},
		"collectors":            "M. Hajibabaei",
		"identified_by":         "P. Hebert",
		"sampling_protocol":     "Malaise trap",
		"collection_date_start": "2007-07-01",
	})
	return bold
}

func newBarcode(bold databases.Database) *Barcode {
	return &Barcode{
		Crate: crate.New(),
		BOLD:  bold,
	}
}

func TestBarcodeProcess(t *testing.T) {
	assert := assert.New(t)
	b := newBarcode(boldFixture())

	process, err := b.Process(context.Background(), "MHMXN361-07")
	assert.Nil(err)
	assert.Equal(Process{
		ProcessId: "MHMXN361-07",
		SampleId:  "BIOUG00001-A01",
		RecordId:  "MHMXN361-07.COI-5P",
		Species:   "Culex laticinctus",
		TaxonId:   "304734",
	}, process)
	assert.Equal(credit.BoldTaxonPage("304734"), process.SpeciesCredit().Id())

	_, err = b.Process(context.Background(), "NOPE-01")
	var notFound *databases.NotFoundError
	assert.True(errors.As(err, &notFound))
}

func TestSampleNodeIdsAreValidFragments(t *testing.T) {
	assert := assert.New(t)
	id := sampleNodeId("BC ZSM Lep 10386")
	assert.Equal(identifiers.CanonicalURI("#BC%20ZSM%20Lep%2010386"), id)
	assert.NotContains(id.String(), " ")
}

func TestBarcodeStages(t *testing.T) {
	assert := assert.New(t)
	b := newBarcode(boldFixture())
	ctx := context.Background()

	samples, err := b.Samples(ctx, []string{"BIOUG00001-A01"})
	assert.Nil(err)
	assert.Equal([]crate.Ref{{Id: "#BIOUG00001-A01"}}, samples)
	sample, _ := b.Crate.Get(samples[0].Id)
	location, _ := sample.Get("locationOfOrigin")
	assert.Equal("43.73;-79.43", location)
	method, _ := sample.Get("collectionMethod")
	assert.Equal("Malaise trap", method)
	collected, _ := sample.Get("dateCollected")
	assert.Equal("2007-07-01", collected)

	sequencing, err := b.Sequencing(ctx, []string{"MHMXN361-07"})
	assert.Nil(err)
	assert.Equal([]crate.Ref{{Id: "#MHMXN361-07-sequencing"}}, sequencing)
	dataset, _ := b.Crate.Get(sequencing[0].Id)
	assert.Equal([]crate.Ref{{Id: "#MHMXN361-07-sequence-data"}}, dataset.Refs("hasPart"))
	process, _ := b.Crate.Get(dataset.Refs("mentions")[0].Id)
	assert.Equal(samples, process.Refs("object"))
	provider, _ := process.Get("provider")
	assert.Equal("Centre for Biodiversity Genomics", provider)
	endDate, _ := process.Get("endDate")
	assert.Equal("2008-03-17", endDate)

	barcodes, err := b.Assemblies(ctx, []string{"MHMXN361-07"})
	assert.Nil(err)
	assert.Equal([]crate.Ref{{Id: "#MHMXN361-07.COI-5P"}}, barcodes)
	assembly, _ := b.Crate.Get(barcodes[0].Id)
	parts := assembly.Refs("hasPart")
	assert.Equal(identifiers.Permalink(identifiers.ENA, "GU123456"), parts[0].Id)
	sequence, _ := b.Crate.Get(parts[0].Id)
	assert.True(sequence.Is(crate.BioChemEntity))
	representation, _ := sequence.Get("hasRepresentation")
	assert.Equal("AACATTATATTTTATTTTTGGAAT", representation)
	assert.Equal([]crate.Ref{{Id: credit.BoldTaxonPage("304734")}}, sequence.Refs("taxonomicRange"))

	action, found := b.Crate.Get("#MHMXN361-07-assembly")
	assert.True(found)
	assert.Equal(dataset.Refs("hasPart"), action.Refs("object"))
	assert.Equal([]crate.Ref{sequence.Ref()}, action.Refs("result"))
}

func TestBarcodeSequencingRequiresSample(t *testing.T) {
	assert := assert.New(t)
	b := newBarcode(boldFixture())

	_, err := b.Sequencing(context.Background(), []string{"MHMXN361-07"})
	var missing *crate.MissingDependencyError
	assert.True(errors.As(err, &missing))
	assert.Equal(identifiers.CanonicalURI("#BIOUG00001-A01"), missing.Id)
}

func TestBarcodeAssemblyRequiresSequencing(t *testing.T) {
	assert := assert.New(t)
	b := newBarcode(boldFixture())

	_, err := b.Assemblies(context.Background(), []string{"MHMXN361-07"})
	var missing *crate.MissingDependencyError
	assert.True(errors.As(err, &missing))
	assert.Equal("Barcode MHMXN361-07", missing.Dependent)
}
