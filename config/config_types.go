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

package config

// service-wide settings
type serviceConfig struct {
	// the kind of crate to assemble ("genome", "barcode" or "validation")
	Flavour string `yaml:"flavour" validate:"oneof=genome barcode validation"`
	// directory to which the crate is written
	Output string `yaml:"output"`
	// timeout for each upstream request (seconds)
	Timeout int `yaml:"timeout"`
	// number of records fetched concurrently within a stage (1 = sequential)
	Concurrency int `yaml:"concurrency"`
	// if set, upstream responses are replayed from (or recorded to) this
	// cassette
	Cassette string `yaml:"cassette"`
	// record upstream responses to the cassette instead of replaying them
	Record bool `yaml:"record"`
	// if set, a Frictionless data package listing downloadable files is
	// written next to the crate
	Manifest bool `yaml:"manifest"`
	// set to true to enable debug-level logging
	Debug bool `yaml:"debug"`
}

// provider database settings
type databaseConfig struct {
	// base URL of the provider's API
	URL string `yaml:"url"`
}

// a named entity referenced by the crate (protocol, workflow, license, place)
type EntityConfig struct {
	// absolute URL identifying the entity (a local identifier is generated if
	// omitted)
	Id string `yaml:"id" validate:"omitempty,url"`
	// human-readable name
	Name string `yaml:"name"`
	// description
	Description string `yaml:"description"`
	// landing page
	URL string `yaml:"url" validate:"omitempty,url"`
}

// root dataset settings
type crateConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description" validate:"required"`
	// license under which the metadata is published (CC0 if omitted)
	License EntityConfig `yaml:"license"`
	// publication date (YYYY-MM-DD); today if omitted
	DatePublished string `yaml:"date_published" validate:"omitempty,datetime=2006-01-02"`
	// ENA project accessions the crate belongs to
	Projects []string `yaml:"projects"`
	// additional identifiers (URLs) for the crate
	Identifiers []string `yaml:"identifiers" validate:"dive,url"`
	// ethics statement referenced by every sample
	Ethics string `yaml:"ethics" validate:"omitempty,url"`
	// validation settings
	Validation struct {
		Profile  string `yaml:"profile" validate:"eq=ro-crate-1.1"`
		Severity string `yaml:"severity" validate:"oneof=REQUIRED RECOMMENDED OPTIONAL"`
	} `yaml:"validation"`
}

// a species the crate is about
type speciesConfig struct {
	// scientific name
	Name string `yaml:"name" validate:"required"`
	// NCBI taxonomy identifier
	TaxonId string `yaml:"taxon_id"`
	// equivalent taxon pages (URLs)
	SameAs []string `yaml:"same_as" validate:"dive,url"`
}

// an organization participating in sample processing
type OrganizationConfig struct {
	// ROR identifier
	Id string `yaml:"id" validate:"required,url"`
	// may be omitted for the consortium's well-known organizations
	Name string `yaml:"name"`
	// home page
	URL string `yaml:"url" validate:"omitempty,url"`
	// GeoNames place at which the organization is located
	Place EntityConfig `yaml:"place"`
}

// sample stage settings
type samplesConfig struct {
	// sample accessions, in order
	Accessions []string `yaml:"accessions" validate:"dive,required"`
	// enrich samples with BioSamples characteristics
	BioSamples bool `yaml:"biosamples"`
	// identify samples by their COPO RO-Crates where available
	COPO bool `yaml:"copo"`
}

// sequencing stage settings
type sequencingConfig struct {
	// ENA experiment accessions, in order
	Accessions []string `yaml:"accessions" validate:"dive,required"`
	// ROR identifier of the organization performing the lab work
	Provider string `yaml:"provider"`
	// protocol followed to extract and prepare nucleic acids
	WetLabProtocol EntityConfig `yaml:"wet_lab_protocol"`
	// protocol followed to sequence the prepared material
	SequencingProtocol EntityConfig `yaml:"sequencing_protocol"`
}

// assembly stage settings
type assembliesConfig struct {
	// ENA assembly accessions, in order
	Accessions []string `yaml:"accessions" validate:"dive,required"`
	// ROR identifier of the organization performing the assembly
	Provider string `yaml:"provider"`
	// workflow used to assemble the sequenced data
	Workflow EntityConfig `yaml:"workflow"`
}

// barcode crate settings
type barcodeConfig struct {
	// BOLD process ID from which the sample, sequencing and assembly
	// accessions are derived
	ProcessId string `yaml:"process_id"`
}

// barcode validation crate settings
type validationConfig struct {
	// local path of the validated barcodes
	FASTA string `yaml:"fasta"`
	// local path of the validation report (one row per sequence)
	TSV string `yaml:"tsv"`
	// the validation tool (naturalis/barcode_validator if omitted)
	Tool EntityConfig `yaml:"tool"`
}
