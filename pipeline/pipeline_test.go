package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bge-barcoding/bgecrate/config"
	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/cratetest"
	"github.com/bge-barcoding/bgecrate/credit"
	"github.com/bge-barcoding/bgecrate/databases"
	"github.com/bge-barcoding/bgecrate/identifiers"
	"github.com/bge-barcoding/bgecrate/manifest"
	"github.com/bge-barcoding/bgecrate/stages"
)

// upstream fixtures shared by all tests
var ena, bold *cratetest.Database

func genomeCredit() credit.CreditMetadata {
	return credit.CreditMetadata{
		Title:       "Genome of Culex laticinctus",
		Description: "Genome of Culex laticinctus created by ERGA-BGE",
		License:     credit.CC0,
		Dates:       []credit.EventDate{{Date: "2024-05-01", Event: credit.PublishedEvent}},
		Contributors: []credit.Organization{
			credit.WellcomeSangerInstitute,
		},
		Species: []credit.Species{
			{ScientificName: "Culex laticinctus", TaxonId: "1464561"},
		},
		RelatedIdentifiers: []credit.PermanentID{
			{Id: "ena.embl:PRJEB75414", Description: "ENA project"},
		},
	}
}

func genomeSpec() Specification {
	return Specification{
		Flavour:            Genome,
		Credit:             genomeCredit(),
		Samples:            []string{"SAMEA114402071"},
		Sequencing:         []string{"ERX12405204"},
		Assemblies:         []string{"GCA_964187845.1"},
		SequencingProvider: credit.WellcomeSangerInstitute.OrganizationId,
		AssemblyProvider:   credit.WellcomeSangerInstitute.OrganizationId,
		Validation: crate.Settings{
			Profile:  crate.DefaultProfile,
			Severity: crate.Required,
			Loader:   &cratetest.ContextLoader{},
		},
	}
}

func TestAssembleGenome(t *testing.T) {
	assert := assert.New(t)
	c, err := Assemble(context.Background(), genomeSpec())
	assert.Nil(err)

	sample := identifiers.Permalink(identifiers.ENA, "SAMEA114402071")
	experiment := identifiers.Permalink(identifiers.ENA, "ERX12405204")
	assembly := identifiers.Permalink(identifiers.Assembly, "GCA_964187845.1")
	assert.Equal([]crate.Ref{{Id: sample}, {Id: experiment}, {Id: assembly}}, c.Root.Refs("hasPart"))
	assert.Equal([]crate.Ref{{Id: assembly}}, c.Root.Refs("mainEntity"))

	taxon := identifiers.Permalink(identifiers.Taxonomy, "1464561")
	assert.Equal([]crate.Ref{{Id: taxon}}, c.Root.Refs("about"))
	name, _ := c.Root.Get("name")
	assert.Equal("Genome of Culex laticinctus", name)

	for _, ref := range c.Root.Refs("hasPart") {
		_, found := c.Get(ref.Id)
		assert.True(found, "%s not in crate", ref.Id)
	}
}

func TestAssembleCollectsStageMembers(t *testing.T) {
	assert := assert.New(t)
	spec := genomeSpec()
	spec.Samples = []string{"SAMEA114402071", "SAMEA114402090"}
	spec.Sequencing = nil
	spec.Assemblies = nil

	c, err := Assemble(context.Background(), spec)
	assert.Nil(err)
	assert.Equal([]crate.Ref{
		{Id: identifiers.Permalink(identifiers.ENA, "SAMEA114402071")},
		{Id: identifiers.Permalink(identifiers.ENA, "SAMEA114402090")},
	}, c.Root.Refs("hasPart"))
	assert.Empty(c.Root.Refs("mainEntity"))
	_, found := c.Get(stages.SampleCollection)
	assert.True(found)
}

// identifiers that do not change from run to run
func stableIds(c *crate.Crate) []identifiers.CanonicalURI {
	var ids []identifiers.CanonicalURI
	for _, node := range c.Nodes() {
		if !node.Id.IsFragment() {
			ids = append(ids, node.Id)
		}
	}
	return ids
}

func TestAssembleIsDeterministic(t *testing.T) {
	assert := assert.New(t)
	first, err := Assemble(context.Background(), genomeSpec())
	assert.Nil(err)
	second, err := Assemble(context.Background(), genomeSpec())
	assert.Nil(err)

	assert.Equal(stableIds(first), stableIds(second))
	assert.Equal(first.Len(), second.Len())
	assert.Equal(first.Root.Refs("hasPart"), second.Root.Refs("hasPart"))
	assert.Equal(first.Root.Refs("mainEntity"), second.Root.Refs("mainEntity"))
}

func TestRunWritesValidCrate(t *testing.T) {
	assert := assert.New(t)
	spec := genomeSpec()
	spec.Output = t.TempDir()
	spec.Manifest = true

	result, err := Run(context.Background(), spec)
	assert.Nil(err)
	assert.Empty(result.Issues, "unexpected issues: %v", result.Issues)
	assert.Equal(filepath.Join(spec.Output, "datapackage.json"), result.ManifestFile)

	doc, err := crate.Read(spec.Output)
	assert.Nil(err)
	graph, _ := doc["@graph"].([]any)
	assert.Len(graph, result.Crate.Len())
}

func TestRunWritesNothingOnError(t *testing.T) {
	assert := assert.New(t)
	spec := genomeSpec()
	spec.Output = t.TempDir()
	spec.Samples = nil // sequencing depends on the missing sample

	_, err := Run(context.Background(), spec)
	var missing *crate.MissingDependencyError
	assert.True(errors.As(err, &missing))
	_, err = os.Stat(filepath.Join(spec.Output, crate.MetadataFile))
	assert.True(os.IsNotExist(err))
}

func TestRunRemovesCrateWhenManifestFails(t *testing.T) {
	assert := assert.New(t)
	spec := genomeSpec()
	spec.Output = t.TempDir()
	spec.Manifest = true
	spec.Validation.Loader = &cratetest.ContextLoader{}
	// a directory occupying the manifest's path cannot be written as a file
	assert.Nil(os.Mkdir(filepath.Join(spec.Output, manifest.Filename), 0755))

	_, err := Run(context.Background(), spec)
	assert.NotNil(err)
	_, err = os.Stat(filepath.Join(spec.Output, crate.MetadataFile))
	assert.True(os.IsNotExist(err))
}

func TestAssembleBarcode(t *testing.T) {
	assert := assert.New(t)
	spec := Specification{
		Flavour:   Barcode,
		ProcessId: "MHMXN361-07",
		Credit: credit.CreditMetadata{
			Title:        "Barcode of Culex laticinctus",
			Description:  "DNA barcode created by BGE",
			License:      credit.CC0,
			Contributors: []credit.Organization{credit.NaturalisBiodiversityCenter},
		},
	}
	c, err := Assemble(context.Background(), spec)
	assert.Nil(err)
	assert.Equal([]crate.Ref{
		{Id: "#BIOUG00001-A01"},
		{Id: "#MHMXN361-07-sequencing"},
		{Id: "#MHMXN361-07.COI-5P"},
	}, c.Root.Refs("hasPart"))
	assert.Equal([]crate.Ref{{Id: credit.BoldTaxonPage("304734")}}, c.Root.Refs("about"))
	_, found := c.Get(credit.BoldTaxonPage("304734"))
	assert.True(found)
}

func TestRunWritesValidationCrate(t *testing.T) {
	assert := assert.New(t)
	data := t.TempDir()
	fasta := filepath.Join(data, "BGE00146_MGE-BGE_r1_1.3_1.5_s50_100.fasta")
	tsv := fasta + ".tsv"
	assert.Nil(os.WriteFile(fasta, []byte(">BGE00146_MGE-BGE_r1_1.3_1.5_s50_100\nAACATT\n"), 0644))
	assert.Nil(os.WriteFile(tsv, []byte("sequence_id\tspecies\n"+
		"BGE00146_MGE-BGE_r1_1.3_1.5_s50_100\tErannis defoliaria\n"+
		"BGE00147_MGE-BGE_r1_1.3_1.5_s50_100\tErannis defoliaria\n"), 0644))

	spec := Specification{
		Flavour: Validation,
		Credit: credit.CreditMetadata{
			Title:        "Barcode of Erannis defoliaria",
			Description:  "Barcode of Erannis defoliaria created by iBOL and BGE",
			License:      credit.CC0,
			Dates:        []credit.EventDate{{Date: "2024-05-01", Event: credit.PublishedEvent}},
			Contributors: []credit.Organization{credit.NaturalisBiodiversityCenter},
		},
		ValidationFASTA: fasta,
		ValidationTSV:   tsv,
		Output:          t.TempDir(),
		Validation:      genomeSpec().Validation,
	}
	result, err := Run(context.Background(), spec)
	assert.Nil(err)
	assert.Empty(result.Issues, "unexpected issues: %v", result.Issues)

	files := []any{
		crate.Ref{Id: "BGE00146_MGE-BGE_r1_1.3_1.5_s50_100.fasta"},
		crate.Ref{Id: "BGE00146_MGE-BGE_r1_1.3_1.5_s50_100.fasta.tsv"},
	}
	assert.Equal(files, result.Crate.Root.Values("hasPart"))
	assert.Equal(files, result.Crate.Root.Values("mainEntity"))
	assert.Equal([]any{
		crate.Ref{Id: "#BGE00146-validation"},
		crate.Ref{Id: "#BGE00147-validation"},
	}, result.Crate.Root.Values("mentions"))
	_, found := result.Crate.Get("#taxon-erannis-defoliaria")
	assert.True(found, "species from the report should be described")
	for _, file := range files {
		_, err := os.Stat(filepath.Join(spec.Output, file.(crate.Ref).Id.String()))
		assert.Nil(err)
	}

	spec.Samples = []string{"BGE00146"}
	_, err = Assemble(context.Background(), spec)
	assert.IsType(&stages.UnsupportedStageError{}, errors.Unwrap(err))
}

func TestAssembleRejectsBadSpecifications(t *testing.T) {
	assert := assert.New(t)
	_, err := Assemble(context.Background(), Specification{Flavour: "transcriptome"})
	var unknown *UnknownFlavourError
	assert.True(errors.As(err, &unknown))

	_, err = Assemble(context.Background(), Specification{Flavour: Barcode})
	var none *NoAccessionsError
	assert.True(errors.As(err, &none))
}

const genomeConfig = `
service:
  output: ${BGE_CRATE_TEST_OUTPUT}
  concurrency: 2
  manifest: true
crate:
  name: Genome of Culex laticinctus
  description: Genome of Culex laticinctus created by ERGA-BGE
  date_published: "2024-05-01"
  projects:
    - PRJEB75414
  identifiers:
    - https://www.ncbi.nlm.nih.gov/bioproject/1109235
species:
  - name: Culex laticinctus
    taxon_id: "1464561"
organizations:
  - id: https://ror.org/05cy4wa09
samples:
  accessions:
    - SAMEA114402071
sequencing:
  accessions:
    - ERX12405204
  provider: https://ror.org/05cy4wa09
  wet_lab_protocol:
    id: https://dx.doi.org/10.17504/protocols.io.8epv5xxy6g1b/v1
    name: Sanger Tree of Life Wet Laboratory Protocol Collection V.1
assemblies:
  accessions:
    - GCA_964187845.1
`

func TestFromConfig(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(config.Init([]byte(genomeConfig)))

	spec, err := FromConfig()
	assert.Nil(err)
	assert.Equal(Genome, spec.Flavour)
	assert.Equal(os.Getenv("BGE_CRATE_TEST_OUTPUT"), spec.Output)
	assert.Equal(2, spec.Concurrency)
	assert.True(spec.Manifest)
	assert.Equal([]string{"SAMEA114402071"}, spec.Samples)
	assert.Equal("https://ror.org/05cy4wa09", spec.SequencingProvider)
	assert.Equal("https://dx.doi.org/10.17504/protocols.io.8epv5xxy6g1b/v1", spec.WetLabProtocol.Id)
	assert.Equal(crate.Required, spec.Validation.Severity)
	assert.Equal("2024-05-01", spec.Credit.DatePublished())
	assert.Equal("https://spdx.org/licenses/CC0-1.0", spec.Credit.License.Id)
	assert.Equal([]credit.Organization{credit.WellcomeSangerInstitute}, spec.Credit.Contributors)
	assert.Equal([]credit.PermanentID{
		{Id: "ena.embl:PRJEB75414", Description: "ENA project"},
		{Id: "https://www.ncbi.nlm.nih.gov/bioproject/1109235"},
	}, spec.Credit.RelatedIdentifiers)

	// the configured crate assembles against the fixtures
	spec.Validation.Loader = &cratetest.ContextLoader{}
	spec.Output = t.TempDir()
	result, err := Run(context.Background(), spec)
	assert.Nil(err)
	assert.Empty(result.Issues)
	protocol, found := result.Crate.Get("https://dx.doi.org/10.17504/protocols.io.8epv5xxy6g1b/v1")
	assert.True(found)
	assert.True(protocol.Is(crate.LabProtocol))
}

func TestFromConfigRejectsUnnamedOrganizations(t *testing.T) {
	assert := assert.New(t)
	yaml := strings.Replace(genomeConfig, "https://ror.org/05cy4wa09", "https://ror.org/02jz4aj89", -1)
	assert.Nil(config.Init([]byte(yaml)))

	_, err := FromConfig()
	assert.IsType(&UnnamedOrganizationError{}, err)
	assert.Contains(err.Error(), "https://ror.org/02jz4aj89")
}

// this function gets called at the begіnning of a test session
func setup() {
	os.Setenv("BGE_CRATE_TEST_OUTPUT", "testdata/crate")

	ena = cratetest.NewDatabase(databases.ENA)
	for _, sample := range []string{"SAMEA114402071", "SAMEA114402090"} {
		ena.Add("sample", "accession", sample, databases.Record{
			"accession":     sample,
			"location":      "Spain",
			"collected_by":  "Carlos Ruiz",
			"identified_by": "Carlos Ruiz",
		})
	}
	experiment := databases.Record{
		"experiment_accession": "ERX12405204",
		"run_accession":        "ERR13034051",
		"sample_accession":     "SAMEA114402071",
		"experiment_title":     "PacBio Sequel II sequencing; PacBio HiFi WGS",
		"fastq_ftp":            "ftp.sra.ebi.ac.uk/vol1/fastq/ERR130/051/ERR13034051/ERR13034051.fastq.gz",
		"fastq_bytes":          "20961567120",
	}
	ena.Add("read_experiment", "experiment_accession", "ERX12405204", experiment)
	ena.Add("read_experiment", "run_accession", "ERR13034051", experiment)
	ena.Add("assembly", "assembly_accession", "GCA_964187845.1", databases.Record{
		"assembly_accession":  "GCA_964187845.1",
		"assembly_title":      "idCulLati1.1",
		"description_comment": "Culex laticinctus genome assembly, primary haplotype",
		"run_accession":       "ERR13034051",
		"wgs_set":             "CAXLCU01",
	})
	ena.Add("wgs_set", "wgs_set", "CAXLCU01", databases.Record{
		"wgs_set":       "CAXLCU01",
		"description":   "Culex laticinctus genome assembly contigs",
		"set_fasta_ftp": "ftp.ebi.ac.uk/pub/databases/ena/wgs/public/cax/CAXLCU01.fasta.gz",
	})
	cratetest.RegisterDatabase(databases.ENA, ena)

	bold = cratetest.NewDatabase(databases.BOLD)
	process := databases.Record{
		"processid":            "MHMXN361-07",
		"sampleid":             "BIOUG00001-A01",
		"record_id":            "MHMXN361-07.COI-5P",
		"species":              "Culex laticinctus",
		"taxid":                "304734",
		"nuc":                  "AACATTATATTTTATTTTTGGAAT",
		"sequence_run_site":    "Centre for Biodiversity Genomics",
		"sequence_upload_date": "2008-03-17",
	}
	bold.Add("records", stages.ProcessIdField, "MHMXN361-07", process)
	bold.Add("records", stages.SampleIdField, "BIOUG00001-A01", process)
	cratetest.RegisterDatabase(databases.BOLD, bold)
}

// this function gets called after all tests have been run
func breakdown() {
}

func TestMain(m *testing.M) {
	setup()
	status := m.Run()
	breakdown()
	os.Exit(status)
}
