package credit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/identifiers"
)

func TestSpeciesIds(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(identifiers.CanonicalURI("https://identifiers.org/taxonomy:934814"),
		Species{ScientificName: "Erannis defoliaria", TaxonId: "934814"}.Id())
	assert.Equal(identifiers.CanonicalURI(
		"https://bench.boldsystems.org/index.php/TaxBrowser_TaxonPage?taxid=52387"),
		Species{ScientificName: "Erannis defoliaria", BoldTaxonId: "52387"}.Id())
	assert.Equal(identifiers.CanonicalURI("#taxon-erannis-defoliaria"),
		Species{ScientificName: "Erannis  defoliaria"}.Id())
}

func TestSpeciesAddTo(t *testing.T) {
	assert := assert.New(t)
	c := crate.New()
	taxon, err := Species{
		ScientificName: "Erannis defoliaria",
		TaxonId:        "934814",
		BoldTaxonId:    "52387",
		SameAs:         []string{"https://www.gbif.org/species/1978960"},
	}.AddTo(c)
	assert.Nil(err)
	assert.True(taxon.Is(crate.Taxon))
	rank, _ := taxon.Get("taxonRank")
	assert.Equal("species", rank)
	assert.Equal([]crate.Ref{
		{Id: BoldTaxonPage("52387")},
		{Id: "https://www.gbif.org/species/1978960"},
	}, taxon.Refs("sameAs"))
}

func TestOrganizationAddTo(t *testing.T) {
	assert := assert.New(t)
	c := crate.New()
	org, err := WellcomeSangerInstitute.AddTo(c)
	assert.Nil(err)
	location, _ := org.Get("location")
	assert.Equal(crate.Ref{Id: "https://www.geonames.org/2653941"}, location)
	place, found := c.Get("https://www.geonames.org/2653941")
	assert.True(found)
	name, _ := place.Get("name")
	assert.Equal("Cambridge, UK", name)

	// adding twice is harmless
	again, err := WellcomeSangerInstitute.AddTo(c)
	assert.Nil(err)
	assert.Same(org, again)
}

func TestPermanentIdURI(t *testing.T) {
	assert := assert.New(t)
	uri, err := PermanentID{Id: "ena.embl:PRJEB65679"}.URI()
	assert.Nil(err)
	assert.Equal(identifiers.Permalink(identifiers.ENA, "PRJEB65679"), uri)

	uri, err = PermanentID{Id: "https://www.ebi.ac.uk/ena/browser/view/PRJEB65679"}.URI()
	assert.Nil(err)
	assert.Equal(identifiers.CanonicalURI("https://www.ebi.ac.uk/ena/browser/view/PRJEB65679"), uri)

	_, err = PermanentID{Id: "PRJEB65679"}.URI()
	assert.IsType(&identifiers.InvalidURIError{}, err)
}

func TestKnownOrganization(t *testing.T) {
	assert := assert.New(t)
	org, found := KnownOrganization("https://ror.org/039zvsn29")
	assert.True(found)
	assert.Equal(NaturalHistoryMuseum, org)
	_, found = KnownOrganization("https://ror.org/02jz4aj89")
	assert.False(found)
}

func TestCreditMetadataAddTo(t *testing.T) {
	assert := assert.New(t)
	c := crate.New()
	metadata := CreditMetadata{
		Title:       "Genome assembly of Erannis defoliaria",
		Description: "Samples, sequencing and assembly",
		License:     CC0,
		Dates:       []EventDate{{Date: "2024-05-01", Event: PublishedEvent}},
		Contributors: []Organization{
			WellcomeSangerInstitute,
			NaturalHistoryMuseum,
		},
		Species:            []Species{{ScientificName: "Erannis defoliaria", TaxonId: "934814"}},
		RelatedIdentifiers: []PermanentID{{Id: "ena.embl:PRJEB65679"}},
	}
	assert.Nil(metadata.AddTo(c))

	name, _ := c.Root.Get("name")
	assert.Equal("Genome assembly of Erannis defoliaria", name)
	published, _ := c.Root.Get("datePublished")
	assert.Equal("2024-05-01", published)
	license, _ := c.Root.Get("license")
	assert.Equal(crate.Ref{Id: "https://spdx.org/licenses/CC0-1.0"}, license)
	assert.Equal([]any{"https://identifiers.org/ena.embl:PRJEB65679"}, c.Root.Values("identifier"))
	taxon := crate.Ref{Id: "https://identifiers.org/taxonomy:934814"}
	assert.Equal([]crate.Ref{taxon}, c.Root.Refs("about"))
	assert.Equal([]crate.Ref{taxon}, c.Root.Refs("taxonomicRange"))

	// descriptor, root, license, 2 x (place, organization), taxon
	assert.Equal(8, c.Len())
}

func TestDatePublishedDefaultsToToday(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(time.Now().Format("2006-01-02"), CreditMetadata{}.DatePublished())
}
