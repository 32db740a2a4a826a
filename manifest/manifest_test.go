package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/credit"
	"github.com/bge-barcoding/bgecrate/identifiers"
	"github.com/bge-barcoding/bgecrate/stages"
)

func addFile(c *crate.Crate, id, name, size, format string) {
	file := crate.NewNode(identifiers.CanonicalURI(id), crate.File)
	file.Edit().
		Set("name", name).
		SetNonEmpty("contentSize", size).
		SetNonEmpty("encodingFormat", format)
	c.Add(file)
}

func testMetadata() credit.CreditMetadata {
	return credit.CreditMetadata{
		Title:        "Genome of Culex laticinctus",
		Description:  "Genome of Culex laticinctus created by ERGA-BGE",
		License:      credit.CC0,
		Contributors: []credit.Organization{credit.WellcomeSangerInstitute},
	}
}

func TestNewManifest(t *testing.T) {
	assert := assert.New(t)
	c := crate.New()
	addFile(c, "ftp://ftp.sra.ebi.ac.uk/vol1/a_1.fastq.gz", "reads 1", "10", stages.FASTQFormat)
	addFile(c, "ftp://ftp.sra.ebi.ac.uk/vol2/a_1.fastq.gz", "reads 2", "20", stages.FASTQFormat)
	addFile(c, "#P1-sequence-data", "placeholder", "", "")
	addFile(c, "https://ftp.ebi.ac.uk/wgs/CAXLCU01.fasta.gz", "contigs", "", stages.FASTAFormat)

	pkg, err := New(c, testMetadata())
	assert.Nil(err)
	assert.NotNil(pkg)
	assert.Equal([]string{"a_1.fastq.gz", "a_1.fastq.gz-2", "caxlcu01.fasta.gz"}, pkg.ResourceNames())

	first := pkg.GetResource("a_1.fastq.gz").Descriptor()
	assert.Equal("https://ftp.sra.ebi.ac.uk/vol1/a_1.fastq.gz", first["path"])
	assert.Equal("fastq", first["format"])
	assert.Equal("application/gzip", first["mediatype"])
	assert.EqualValues(10, first["bytes"])

	contigs := pkg.GetResource("caxlcu01.fasta.gz").Descriptor()
	assert.Equal("fasta", contigs["format"])
	_, found := contigs["bytes"]
	assert.False(found)
}

func TestNoDownloadableFiles(t *testing.T) {
	assert := assert.New(t)
	c := crate.New()
	addFile(c, "#P1-sequence-data", "placeholder", "", "")

	pkg, err := New(c, testMetadata())
	assert.Nil(err)
	assert.Nil(pkg)

	path, err := Write(c, testMetadata(), t.TempDir())
	assert.Nil(err)
	assert.Equal("", path)
}

func TestWriteAndRead(t *testing.T) {
	assert := assert.New(t)
	c := crate.New()
	addFile(c, "ftp://ftp.sra.ebi.ac.uk/vol1/a_1.fastq.gz", "reads 1", "10", stages.FASTQFormat)
	dir := t.TempDir()

	path, err := Write(c, testMetadata(), dir)
	assert.Nil(err)
	assert.NotEqual("", path)

	pkg, err := Read(dir)
	assert.Nil(err)
	assert.Equal([]string{"a_1.fastq.gz"}, pkg.ResourceNames())
	descriptor := pkg.Descriptor()
	assert.Equal("Genome of Culex laticinctus", descriptor["title"])
}

func TestResourceName(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("a_1.fastq.gz", resourceName("A_1.fastq.gz"))
	assert.Equal("sample-data-.fa", resourceName("sample data?.fa"))
	assert.Equal("resource", resourceName("???"))
}
