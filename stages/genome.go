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

package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/databases"
	"github.com/bge-barcoding/bgecrate/databases/biosamples"
	"github.com/bge-barcoding/bgecrate/databases/copo"
	"github.com/bge-barcoding/bgecrate/identifiers"
)

// ENA result types queried by the genome stages
const (
	enaSample         = "sample"
	enaReadExperiment = "read_experiment"
	enaAssembly       = "assembly"
	enaWgsSet         = "wgs_set"
)

// the only sample relation that is carried into the crate
const sameAsRelation = "same_as"

// profile to which COPO sample crates conform
const crateProfile = "https://w3id.org/ro/crate"

// CrateSource is a database whose records refer to detached RO-Crates that it
// can also retrieve.
type CrateSource interface {
	databases.Database
	LoadCrate(ctx context.Context, uri string) (map[string]any, error)
}

// Genome builds the stages of a genome crate from ENA records: samples, the
// wet-lab and sequencing processes that produced reads from them, and the
// assemblies built from those reads.
type Genome struct {
	// crate to which nodes are added
	Crate *crate.Crate
	// source of sample, experiment, assembly, and WGS set records
	ENA databases.Database
	// if non-nil, samples are enriched with BioSamples characteristics
	BioSamples databases.Database
	// if non-nil, samples with COPO manifests are identified by their crates
	COPO CrateSource
	// ethics statement referenced by every sample
	Ethics string
	// number of records fetched concurrently within a stage
	Concurrency int
	// protocols executed by the wet-lab and sequencing processes
	WetLabProtocol, SequencingProtocol Protocol
	// ROR identifier of the organization that sequenced the samples
	SequencingProvider string
	// workflow used to produce assemblies
	Workflow Protocol
	// ROR identifier of the organization that produced the assemblies
	AssemblyProvider string

	// sample node identifiers by accession
	samples                  map[string]identifiers.CanonicalURI
	wetLab, sequencing, flow *crate.Node
}

// records fetched for a single sample
type genomeSample struct {
	ENA       databases.Record
	BioSample databases.Record
	COPO      databases.Record
	COPOCrate map[string]any
}

// Adds a BioSample node for each of the given sample accessions to the crate.
func (g *Genome) Samples(ctx context.Context, accessions []string) ([]crate.Ref, error) {
	accessions = unique("sample", accessions)
	data, err := prefetch(ctx, g.Concurrency, accessions, g.fetchSample)
	if err != nil {
		return nil, err
	}
	if g.samples == nil {
		g.samples = make(map[string]identifiers.CanonicalURI)
	}
	members := make([]crate.Ref, 0, len(accessions))
	for i, accession := range accessions {
		var sample *crate.Node
		if data[i].COPO != nil {
			sample, err = g.copoSample(accession, data[i])
		} else {
			sample, err = g.enaSample(accession, data[i])
		}
		if err != nil {
			return nil, err
		}
		if err := addRelations(sample, data[i].ENA); err != nil {
			return nil, err
		}
		sample = g.Crate.Add(sample)
		g.samples[accession] = sample.Id
		members = append(members, sample.Ref())
	}
	slog.Info(fmt.Sprintf("Added %d sample(s)", len(members)))
	return collect(g.Crate, SampleCollection, members), nil
}

func (g *Genome) fetchSample(ctx context.Context, accession string) (genomeSample, error) {
	var sample genomeSample
	var err error
	sample.ENA, err = g.ENA.Fetch(ctx, databases.Query{
		ResultType:     enaSample,
		AccessionField: "accession",
		Accession:      accession,
	})
	if err != nil {
		return sample, err
	}
	if g.BioSamples != nil {
		sample.BioSample, err = g.BioSamples.Fetch(ctx, databases.Query{
			ResultType: biosamples.SamplesResultType,
			Accession:  accession,
		})
		if err != nil {
			return sample, err
		}
	}
	if g.COPO != nil {
		record, err := g.COPO.Fetch(ctx, databases.Query{
			ResultType:     copo.SampleResultType,
			AccessionField: "biosampleAccession",
			Accession:      accession,
		})
		var notFound *databases.NotFoundError
		switch {
		case errors.As(err, &notFound):
			slog.Info(fmt.Sprintf("No COPO manifest for sample %s; using its ENA record", accession))
		case err != nil:
			return sample, err
		default:
			sample.COPOCrate, err = g.COPO.LoadCrate(ctx, record.String("rocrate_uri"))
			if err != nil {
				return sample, err
			}
			sample.COPO = record
		}
	}
	return sample, nil
}

// returns the identifiers of a sample: its accession, any other non-empty
// identifiers, and its permalinks
func sampleIdentifiers(accession string, others ...string) []any {
	ids := []any{accession}
	for _, other := range others {
		if other != "" {
			ids = append(ids, other)
		}
	}
	return append(ids,
		identifiers.Permalink(identifiers.ENA, accession).String(),
		identifiers.Permalink(identifiers.BioSamples, accession).String())
}

func (g *Genome) enaSample(accession string, data genomeSample) (*crate.Node, error) {
	sample := crate.NewNode(identifiers.Permalink(identifiers.ENA, accession), crate.BioSample)
	// ENA stores a UUID for the sample in its description
	ids := sampleIdentifiers(accession, data.ENA.String("sample_description"))
	editor := sample.Edit().
		Append("conformsTo", crate.Ref{Id: SampleProfile}).
		Set("name", fmt.Sprintf("Sample %s", accession)).
		Set("description", fmt.Sprintf("ENA record for biosample accession %s.", accession)).
		Append("identifier", ids...).
		Set("locationOfOrigin", orUnknown(data.ENA.String("location"))).
		Set("collector", orUnknown(data.ENA.String("collected_by"))).
		Set("contributor", orUnknown(data.ENA.String("identified_by"))).
		Set("custodian", Unknown)
	if g.Ethics != "" {
		editor.Set("ethics", crate.Ref{Id: identifiers.CanonicalURI(g.Ethics)})
	}
	if data.BioSample != nil {
		editor.SetNonEmpty("collectionMethod", data.BioSample.String("collection method"))
	}
	return sample, editor.Err()
}

func (g *Genome) copoSample(accession string, data genomeSample) (*crate.Node, error) {
	uri, err := identifiers.URL(data.COPO.String("rocrate_uri"))
	if err != nil {
		return nil, err
	}
	name := rootName(data.COPOCrate)
	if name == "" {
		name = fmt.Sprintf("Sample %s", accession)
	}
	sample := crate.NewNode(uri, crate.Dataset, crate.BioSample)
	editor := sample.Edit().
		Append("conformsTo", crate.Ref{Id: crateProfile}).
		Set("name", name).
		Set("description", fmt.Sprintf("COPO manifest for biosample accession %s. "+
			"Resolves to a detached RO-Crate.", accession)).
		Append("identifier", sampleIdentifiers(accession)...)
	if g.Ethics != "" {
		editor.Set("ethics", crate.Ref{Id: identifiers.CanonicalURI(g.Ethics)})
	}
	return sample, editor.Err()
}

// returns the name of the root data entity of the given crate document
func rootName(document map[string]any) string {
	graph, _ := document["@graph"].([]any)
	for _, e := range graph {
		entity, ok := e.(map[string]any)
		if !ok || entity["@id"] != crate.RootId.String() {
			continue
		}
		name, _ := entity["name"].(string)
		return name
	}
	return ""
}

// records the equivalences between the sample and other ENA samples
func addRelations(sample *crate.Node, record databases.Record) error {
	for _, related := range record.List("related_sample_accession") {
		accession, relation, found := strings.Cut(related, ":")
		if !found || relation != sameAsRelation {
			continue
		}
		err := sample.Append("sameAs", crate.Ref{Id: identifiers.Permalink(identifiers.ENA, accession)})
		if err != nil {
			return err
		}
	}
	return nil
}

// returns the identifier of the node for the sample with the given accession
func (g *Genome) sampleId(accession string) identifiers.CanonicalURI {
	if id, found := g.samples[accession]; found {
		return id
	}
	return identifiers.Permalink(identifiers.ENA, accession)
}

// Adds a Dataset node for each of the given experiment accessions to the
// crate, describing the extraction of DNA/RNA from a previously added sample
// and the sequencing of the extracted material.
func (g *Genome) Sequencing(ctx context.Context, accessions []string) ([]crate.Ref, error) {
	accessions = unique("sequencing", accessions)
	records, err := prefetch(ctx, g.Concurrency, accessions,
		func(ctx context.Context, accession string) (databases.Record, error) {
			return g.ENA.Fetch(ctx, databases.Query{
				ResultType:     enaReadExperiment,
				AccessionField: "experiment_accession",
				Accession:      accession,
			})
		})
	if err != nil {
		return nil, err
	}
	if err := g.addLabProtocols(); err != nil {
		return nil, err
	}
	members := make([]crate.Ref, 0, len(accessions))
	for i, accession := range accessions {
		experiment, err := g.experiment(accession, records[i])
		if err != nil {
			return nil, err
		}
		members = append(members, experiment.Ref())
	}
	slog.Info(fmt.Sprintf("Added %d sequencing experiment(s)", len(members)))
	return collect(g.Crate, SequencingCollection, members), nil
}

func (g *Genome) addLabProtocols() error {
	var err error
	if g.wetLab == nil {
		g.wetLab, err = g.WetLabProtocol.withDefaults("Wet laboratory protocol",
			"Protocol for the extraction of DNA/RNA from samples").
			addTo(g.Crate, "wet-lab-protocol", crate.LabProtocol)
		if err != nil {
			return err
		}
	}
	if g.sequencing == nil {
		g.sequencing, err = g.SequencingProtocol.withDefaults("Sequencing protocol",
			"Protocol for the sequencing of extracted DNA/RNA").
			addTo(g.Crate, "sequencing-protocol", crate.LabProtocol)
	}
	return err
}

func (g *Genome) experiment(accession string, record databases.Record) (*crate.Node, error) {
	dependent := fmt.Sprintf("Sequencing %s", accession)
	sample, err := g.Crate.Require(g.sampleId(record.String("sample_accession")), dependent)
	if err != nil {
		return nil, err
	}

	processed := crate.NewNode(identifiers.NewFragment("processed-dna-rna"), crate.BioSample)
	err = processed.Edit().
		Set("name", fmt.Sprintf("Processed DNA/RNA (%s)", accession)).
		Set("description", "DNA/RNA obtained from the sample by the extraction process").
		Err()
	if err != nil {
		return nil, err
	}
	processed = g.Crate.Add(processed)

	wetLab, err := crate.NewAction(identifiers.NewFragment("wet-lab-process"), crate.LabProcess,
		g.wetLab.Ref(), []crate.Ref{sample.Ref()}, []crate.Ref{processed.Ref()})
	if err != nil {
		return nil, err
	}
	err = wetLab.Edit().
		Set("name", fmt.Sprintf("DNA/RNA extraction process (%s)", accession)).
		Set("agent", Unknown).
		Set("executesLabProtocol", g.wetLab).
		Err()
	if err != nil {
		return nil, err
	}
	if err := setProvider(g.Crate, wetLab, g.SequencingProvider, dependent); err != nil {
		return nil, err
	}
	wetLab = g.Crate.Add(wetLab)

	files, err := g.readFiles(accession, record)
	if err != nil {
		return nil, err
	}

	sequencing, err := crate.NewAction(identifiers.NewFragment("sequencing-process"), crate.LabProcess,
		g.sequencing.Ref(), []crate.Ref{processed.Ref()}, files)
	if err != nil {
		return nil, err
	}
	err = sequencing.Edit().
		Set("name", fmt.Sprintf("Genome sequencing process (%s)", accession)).
		Set("agent", Unknown).
		Set("executesLabProtocol", g.sequencing).
		Err()
	if err != nil {
		return nil, err
	}
	if err := setProvider(g.Crate, sequencing, g.SequencingProvider, dependent); err != nil {
		return nil, err
	}
	sequencing = g.Crate.Add(sequencing)

	experiment := crate.NewNode(identifiers.Permalink(identifiers.ENA, accession), crate.Dataset)
	editor := experiment.Edit().
		Set("name", fmt.Sprintf("Sequencing stage %s", accession)).
		SetNonEmpty("description", record.String("experiment_title")).
		Append("hasPart", processed.Ref())
	for _, file := range files {
		editor.Append("hasPart", file)
	}
	editor.Append("mentions", wetLab.Ref(), sequencing.Ref())
	if err := editor.Err(); err != nil {
		return nil, err
	}
	return g.Crate.Add(experiment), nil
}

// adds File nodes for the reads of an experiment, in the order ENA lists them
func (g *Genome) readFiles(accession string, record databases.Record) ([]crate.Ref, error) {
	locations := record.List("fastq_ftp")
	sizes := record.List("fastq_bytes")
	if len(locations) != len(sizes) {
		slog.Warn(fmt.Sprintf("Experiment %s lists %d read files but %d sizes",
			accession, len(locations), len(sizes)))
	}
	n := min(len(locations), len(sizes))
	title := record.String("experiment_title")
	if title == "" {
		title = accession
	}
	files := make([]crate.Ref, 0, n)
	for i := 0; i < n; i++ {
		location := fileLocation(locations[i])
		file, err := addFile(g.Crate, location, fmt.Sprintf("%s: %s", title, baseName(location)),
			sizes[i], FASTQFormat)
		if err != nil {
			return nil, err
		}
		files = append(files, file.Ref())
	}
	return files, nil
}

// records fetched for a single assembly
type genomeAssembly struct {
	Assembly    databases.Record
	Experiments []string
	WgsSet      databases.Record
}

// Adds a Dataset node for each of the given assembly accessions to the crate,
// with an action connecting it to the sequencing experiments whose reads it
// was assembled from.
func (g *Genome) Assemblies(ctx context.Context, accessions []string) ([]crate.Ref, error) {
	accessions = unique("assembly", accessions)
	data, err := prefetch(ctx, g.Concurrency, accessions, g.fetchAssembly)
	if err != nil {
		return nil, err
	}
	if g.flow == nil {
		g.flow, err = g.Workflow.withDefaults("Assembly workflow (placeholder)",
			"A placeholder for the workflow used to assemble the sequenced data").
			addTo(g.Crate, "assembly-workflow", crate.SoftwareSourceCode, crate.ComputationalWorkflow)
		if err != nil {
			return nil, err
		}
	}
	members := make([]crate.Ref, 0, len(accessions))
	for i, accession := range accessions {
		assembly, err := g.assembly(accession, data[i])
		if err != nil {
			return nil, err
		}
		members = append(members, assembly.Ref())
	}
	slog.Info(fmt.Sprintf("Added %d assemblies", len(members)))
	return collect(g.Crate, AnalysisCollection, members), nil
}

func (g *Genome) fetchAssembly(ctx context.Context, accession string) (genomeAssembly, error) {
	var data genomeAssembly
	var err error
	data.Assembly, err = g.ENA.Fetch(ctx, databases.Query{
		ResultType:     enaAssembly,
		AccessionField: "assembly_accession",
		Accession:      accession,
	})
	var notFound *databases.NotFoundError
	if errors.As(err, &notFound) {
		data.Assembly, err = g.ENA.Fetch(ctx, databases.Query{
			ResultType:     enaAssembly,
			AccessionField: "assembly_set_accession",
			Accession:      accession,
		})
	}
	if err != nil {
		return data, err
	}

	// assemblies list runs, but the sequencing stage is keyed by experiment
	for _, run := range data.Assembly.List("run_accession") {
		experiment, err := g.ENA.Fetch(ctx, databases.Query{
			ResultType:     enaReadExperiment,
			AccessionField: "run_accession",
			Accession:      run,
		})
		if err != nil {
			return data, err
		}
		data.Experiments = append(data.Experiments, experiment.String("experiment_accession"))
	}

	if wgsSet := data.Assembly.String("wgs_set"); wgsSet != "" {
		data.WgsSet, err = g.ENA.Fetch(ctx, databases.Query{
			ResultType:     enaWgsSet,
			AccessionField: "wgs_set",
			Accession:      wgsSet,
		})
	}
	return data, err
}

// Returns the identifier of the node for the assembly with the given
// accession.
func AssemblyId(accession string) identifiers.CanonicalURI {
	if strings.HasPrefix(accession, "GCA_") {
		return identifiers.Permalink(identifiers.Assembly, accession)
	}
	return identifiers.Permalink(identifiers.ENA, accession)
}

func (g *Genome) assembly(accession string, data genomeAssembly) (*crate.Node, error) {
	dependent := fmt.Sprintf("Assembly %s", accession)
	experiments := make([]crate.Ref, 0, len(data.Experiments))
	for _, experimentAccession := range data.Experiments {
		experiment, err := g.Crate.Require(identifiers.Permalink(identifiers.ENA, experimentAccession), dependent)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, experiment.Ref())
	}

	var files []crate.Ref
	if data.WgsSet != nil {
		wgsSet := data.Assembly.String("wgs_set")
		for _, path := range data.WgsSet.List("set_fasta_ftp") {
			location := fileLocation(path)
			name := data.WgsSet.String("description")
			if name == "" {
				name = baseName(location)
			}
			file, err := addFile(g.Crate, location, name, "", FASTAFormat)
			if err != nil {
				return nil, err
			}
			err = file.Append("identifier", identifiers.Permalink(identifiers.ENA, wgsSet).String())
			if err != nil {
				return nil, err
			}
			files = append(files, file.Ref())
		}
	}

	assembly := crate.NewNode(AssemblyId(accession), crate.Dataset)
	title := data.Assembly.String("assembly_title")
	if title == "" {
		title = fmt.Sprintf("Genome assembly %s", accession)
	}
	editor := assembly.Edit().
		Set("name", title).
		SetNonEmpty("description", data.Assembly.String("description_comment")).
		Append("identifier", accession)
	for _, file := range files {
		editor.Append("hasPart", file)
	}
	editor.Append("hasPart", g.flow.Ref())
	if err := editor.Err(); err != nil {
		return nil, err
	}

	action, err := crate.NewAction(identifiers.NewFragment("assembly-process"), crate.CreateAction,
		g.flow.Ref(), experiments, []crate.Ref{assembly.Ref()})
	if err != nil {
		return nil, err
	}
	err = action.Edit().
		Set("name", fmt.Sprintf("Genome assembly process (%s)", accession)).
		Set("agent", Unknown).
		Err()
	if err != nil {
		return nil, err
	}
	if err := setProvider(g.Crate, action, g.AssemblyProvider, dependent); err != nil {
		return nil, err
	}
	action = g.Crate.Add(action)
	if err := assembly.Append("mentions", action.Ref()); err != nil {
		return nil, err
	}
	return g.Crate.Add(assembly), nil
}
