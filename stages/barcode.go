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
	"fmt"
	"log/slog"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/credit"
	"github.com/bge-barcoding/bgecrate/databases"
	"github.com/bge-barcoding/bgecrate/databases/bold"
	"github.com/bge-barcoding/bgecrate/identifiers"
)

// BOLD fields by which barcode records are looked up
const (
	SampleIdField  = "ids:sampleid"
	ProcessIdField = "ids:processid"
)

// Process summarizes the BOLD record of a barcoding process: the specimen it
// was performed on and the species it identified.
type Process struct {
	ProcessId string
	SampleId  string
	RecordId  string
	// scientific name of the identified species
	Species string
	// BOLD taxon identifier of the identified species
	TaxonId string
}

// Barcode builds the stages of a barcode crate from BOLD records: a specimen,
// the sequencing of its barcode region, and the resulting barcode sequence.
type Barcode struct {
	// crate to which nodes are added
	Crate *crate.Crate
	// source of specimen and process records
	BOLD databases.Database
	// ethics statement referenced by every sample
	Ethics string
	// number of records fetched concurrently within a stage
	Concurrency int
	// protocol executed by the sequencing processes
	SequencingProtocol Protocol
	// workflow used to produce barcode sequences
	Workflow Protocol

	sequencing, flow *crate.Node
}

func (b *Barcode) fetch(field string) func(context.Context, string) (databases.Record, error) {
	return func(ctx context.Context, accession string) (databases.Record, error) {
		return b.BOLD.Fetch(ctx, databases.Query{
			ResultType:     bold.RecordsResultType,
			AccessionField: field,
			Accession:      accession,
		})
	}
}

// Retrieves the BOLD record for the given process ID.
func (b *Barcode) Process(ctx context.Context, processId string) (Process, error) {
	record, err := b.fetch(ProcessIdField)(ctx, processId)
	if err != nil {
		return Process{}, err
	}
	process := Process{
		ProcessId: record.String("processid"),
		SampleId:  record.String("sampleid"),
		RecordId:  record.String("record_id"),
		Species:   record.String("species"),
		TaxonId:   record.String("taxid"),
	}
	if process.ProcessId == "" {
		process.ProcessId = processId
	}
	if process.SampleId == "" {
		return Process{}, &databases.NotFoundError{
			Database:  databases.BOLD,
			Accession: processId,
			Query:     fmt.Sprintf("%s:%s (no sample ID)", ProcessIdField, processId),
		}
	}
	return process, nil
}

// Returns the species identified by the process.
func (p Process) SpeciesCredit() credit.Species {
	return credit.Species{
		ScientificName: p.Species,
		BoldTaxonId:    p.TaxonId,
	}
}

func sampleNodeId(sampleId string) identifiers.CanonicalURI {
	return identifiers.Fragment(sampleId)
}

func sequencingNodeId(processId string) identifiers.CanonicalURI {
	return identifiers.Fragment(processId + "-sequencing")
}

// Adds a BioSample node for each of the given BOLD sample IDs to the crate.
func (b *Barcode) Samples(ctx context.Context, sampleIds []string) ([]crate.Ref, error) {
	sampleIds = unique("sample", sampleIds)
	records, err := prefetch(ctx, b.Concurrency, sampleIds, b.fetch(SampleIdField))
	if err != nil {
		return nil, err
	}
	members := make([]crate.Ref, 0, len(sampleIds))
	for i, sampleId := range sampleIds {
		record := records[i]
		sample := crate.NewNode(sampleNodeId(sampleId), crate.BioSample)
		editor := sample.Edit().
			Append("conformsTo", crate.Ref{Id: SampleProfile}).
			Set("name", fmt.Sprintf("Sample %s", sampleId)).
			Set("description", fmt.Sprintf("BOLD record for sample %s.", sampleId)).
			Append("identifier", sampleId).
			Set("locationOfOrigin", orUnknown(record.String("coord"))).
			Set("collector", orUnknown(record.String("collectors"))).
			Set("contributor", orUnknown(record.String("identified_by"))).
			Set("custodian", Unknown).
			SetNonEmpty("collectionMethod", record.String("sampling_protocol")).
			SetNonEmpty("dateCollected", record.String("collection_date_start"))
		if b.Ethics != "" {
			editor.Set("ethics", crate.Ref{Id: identifiers.CanonicalURI(b.Ethics)})
		}
		if err := editor.Err(); err != nil {
			return nil, err
		}
		members = append(members, b.Crate.Add(sample).Ref())
	}
	slog.Info(fmt.Sprintf("Added %d sample(s)", len(members)))
	return collect(b.Crate, SampleCollection, members), nil
}

// Adds a Dataset node for each of the given BOLD process IDs to the crate,
// describing the sequencing of a previously added sample.
func (b *Barcode) Sequencing(ctx context.Context, processIds []string) ([]crate.Ref, error) {
	processIds = unique("sequencing", processIds)
	records, err := prefetch(ctx, b.Concurrency, processIds, b.fetch(ProcessIdField))
	if err != nil {
		return nil, err
	}
	if b.sequencing == nil {
		b.sequencing, err = b.SequencingProtocol.withDefaults("Sequencing protocol",
			"Protocol for the sequencing of the barcode region").
			addTo(b.Crate, "sequencing-protocol", crate.LabProtocol)
		if err != nil {
			return nil, err
		}
	}
	members := make([]crate.Ref, 0, len(processIds))
	for i, processId := range processIds {
		dataset, err := b.sequencingDataset(processId, records[i])
		if err != nil {
			return nil, err
		}
		members = append(members, dataset.Ref())
	}
	slog.Info(fmt.Sprintf("Added %d sequencing process(es)", len(members)))
	return collect(b.Crate, SequencingCollection, members), nil
}

func (b *Barcode) sequencingDataset(processId string, record databases.Record) (*crate.Node, error) {
	sampleId := record.String("sampleid")
	sample, err := b.Crate.Require(sampleNodeId(sampleId), fmt.Sprintf("Sequencing %s", processId))
	if err != nil {
		return nil, err
	}

	// BOLD does not expose the raw trace files
	data := crate.NewNode(identifiers.Fragment(processId+"-sequence-data"), crate.File)
	err = data.Edit().
		Set("name", fmt.Sprintf("Sequencing data for %s", processId)).
		Set("description", fmt.Sprintf("Sequencing of sample %s, performed as part of process %s.",
			sampleId, processId)).
		Err()
	if err != nil {
		return nil, err
	}
	data = b.Crate.Add(data)

	action, err := crate.NewAction(identifiers.NewFragment("sequencing-process"), crate.LabProcess,
		b.sequencing.Ref(), []crate.Ref{sample.Ref()}, []crate.Ref{data.Ref()})
	if err != nil {
		return nil, err
	}
	err = action.Edit().
		Set("name", fmt.Sprintf("Barcode sequencing process (%s)", processId)).
		Set("agent", Unknown).
		Set("executesLabProtocol", b.sequencing).
		SetNonEmpty("provider", record.String("sequence_run_site")).
		SetNonEmpty("endDate", record.String("sequence_upload_date")).
		Err()
	if err != nil {
		return nil, err
	}
	action = b.Crate.Add(action)

	dataset := crate.NewNode(sequencingNodeId(processId), crate.Dataset)
	err = dataset.Edit().
		Set("name", fmt.Sprintf("Sequencing stage %s", processId)).
		Set("description", fmt.Sprintf("Sequencing stage for %s. Contains sequenced data and "+
			"a description of the process used to create it.", processId)).
		Append("hasPart", data.Ref()).
		Append("mentions", action.Ref()).
		Err()
	if err != nil {
		return nil, err
	}
	return b.Crate.Add(dataset), nil
}

// Adds a Dataset node for the barcode sequence produced by each of the given
// BOLD process IDs to the crate.
func (b *Barcode) Assemblies(ctx context.Context, processIds []string) ([]crate.Ref, error) {
	processIds = unique("assembly", processIds)
	records, err := prefetch(ctx, b.Concurrency, processIds, b.fetch(ProcessIdField))
	if err != nil {
		return nil, err
	}
	if b.flow == nil {
		b.flow, err = b.Workflow.withDefaults("Barcode assembly workflow (placeholder)",
			"A placeholder for the workflow used to assemble barcode sequences").
			addTo(b.Crate, "assembly-workflow", crate.SoftwareSourceCode, crate.ComputationalWorkflow)
		if err != nil {
			return nil, err
		}
	}
	members := make([]crate.Ref, 0, len(processIds))
	for i, processId := range processIds {
		dataset, err := b.barcodeDataset(processId, records[i])
		if err != nil {
			return nil, err
		}
		members = append(members, dataset.Ref())
	}
	slog.Info(fmt.Sprintf("Added %d barcode(s)", len(members)))
	return collect(b.Crate, AnalysisCollection, members), nil
}

func (b *Barcode) barcodeDataset(processId string, record databases.Record) (*crate.Node, error) {
	dependent := fmt.Sprintf("Barcode %s", processId)
	sequencing, err := b.Crate.Require(sequencingNodeId(processId), dependent)
	if err != nil {
		return nil, err
	}

	id := identifiers.Fragment(processId + "-barcode")
	if accession := record.String("insdc_acs"); accession != "" {
		id = identifiers.Permalink(identifiers.ENA, accession)
	}
	sequence := crate.NewNode(id, crate.BioChemEntity)
	editor := sequence.Edit().
		Set("name", fmt.Sprintf("Barcode data from process %s", processId)).
		SetNonEmpty("hasRepresentation", record.String("nuc"))
	if taxonId := record.String("taxid"); taxonId != "" {
		editor.Append("taxonomicRange", crate.Ref{Id: credit.BoldTaxonPage(taxonId)})
	}
	if err := editor.Err(); err != nil {
		return nil, err
	}
	sequence = b.Crate.Add(sequence)

	recordId := processId + "-record"
	if record.Has("record_id") {
		recordId = record.String("record_id")
	}
	dataset := crate.NewNode(identifiers.Fragment(recordId), crate.Dataset)
	err = dataset.Edit().
		Set("name", fmt.Sprintf("Barcode assembly %s", recordId)).
		Set("description", fmt.Sprintf("Barcode assembly stage for %s. Contains the workflow used, "+
			"the workflow execution details, and the output data.", recordId)).
		Append("hasPart", sequence.Ref(), b.flow.Ref()).
		Err()
	if err != nil {
		return nil, err
	}

	action, err := crate.NewAction(identifiers.Fragment(processId+"-assembly"), crate.CreateAction,
		b.flow.Ref(), sequencing.Refs("hasPart"), []crate.Ref{sequence.Ref()})
	if err != nil {
		return nil, err
	}
	err = action.Edit().
		Set("name", fmt.Sprintf("Barcode assembly process (%s)", processId)).
		Set("agent", Unknown).
		Err()
	if err != nil {
		return nil, err
	}
	action = b.Crate.Add(action)
	if err := dataset.Append("mentions", action.Ref()); err != nil {
		return nil, err
	}
	return b.Crate.Add(dataset), nil
}
