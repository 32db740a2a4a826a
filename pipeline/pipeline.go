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

// Package pipeline assembles a crate from a Specification: it builds the
// sample, sequencing, and assembly stages in order, links them from the root
// dataset, writes the crate, and validates it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/frictionlessdata/datapackage-go/datapackage"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/credit"
	"github.com/bge-barcoding/bgecrate/databases"
	"github.com/bge-barcoding/bgecrate/manifest"
	"github.com/bge-barcoding/bgecrate/stages"
)

// supported crate flavours
const (
	Genome     = "genome"
	Barcode    = "barcode"
	Validation = "validation"
)

// Stages builds the three stages of a crate. Each stage returns references to
// its members, in the order of the given accessions.
type Stages interface {
	Samples(ctx context.Context, accessions []string) ([]crate.Ref, error)
	Sequencing(ctx context.Context, accessions []string) ([]crate.Ref, error)
	Assemblies(ctx context.Context, accessions []string) ([]crate.Ref, error)
}

// this type holds a specification used to assemble a crate
type Specification struct {
	// the kind of crate ("genome", "barcode" or "validation")
	Flavour string
	// metadata describing the crate's root dataset
	Credit credit.CreditMetadata
	// accessions of the samples, sequencing experiments, and assemblies, in
	// order
	Samples, Sequencing, Assemblies []string
	// BOLD process ID from which the accessions and species of a barcode crate
	// are derived (if given)
	ProcessId string
	// enrich genome samples with BioSamples characteristics
	BioSamples bool
	// identify genome samples by their COPO RO-Crates where available
	COPO bool
	// ethics statement referenced by every sample
	Ethics string
	// number of records fetched concurrently within a stage
	Concurrency int
	// protocols and workflow executed by the stages' actions
	WetLabProtocol, SequencingProtocol, Workflow stages.Protocol
	// ROR identifiers of the organizations performing sequencing and assembly
	SequencingProvider, AssemblyProvider string
	// local paths of the barcodes and the report of a validation crate
	ValidationFASTA, ValidationTSV string
	// the tool that validated the barcodes
	ValidationTool stages.Protocol
	// directory to which the crate is written (not written if empty)
	Output string
	// if true, a data package listing downloadable files is written with the
	// crate
	Manifest bool
	// validation settings
	Validation crate.Settings
}

// the outcome of a pipeline run
type Result struct {
	// the assembled crate
	Crate *crate.Crate
	// issues found by validation
	Issues []crate.Issue
	// path of the written manifest, if any
	ManifestFile string
}

// returns the stages for the given specification, possibly updating it with
// accessions and species derived from upstream records
func newStages(ctx context.Context, c *crate.Crate, spec *Specification) (Stages, error) {
	switch spec.Flavour {
	case Genome, "":
		return genomeStages(c, *spec)
	case Barcode:
		return barcodeStages(ctx, c, spec)
	case Validation:
		return validationStages(c, spec)
	default:
		return nil, &UnknownFlavourError{Flavour: spec.Flavour}
	}
}

func genomeStages(c *crate.Crate, spec Specification) (Stages, error) {
	ena, err := databases.NewDatabase(databases.ENA)
	if err != nil {
		return nil, err
	}
	g := &stages.Genome{
		Crate:              c,
		ENA:                ena,
		Ethics:             spec.Ethics,
		Concurrency:        spec.Concurrency,
		WetLabProtocol:     spec.WetLabProtocol,
		SequencingProtocol: spec.SequencingProtocol,
		SequencingProvider: spec.SequencingProvider,
		Workflow:           spec.Workflow,
		AssemblyProvider:   spec.AssemblyProvider,
	}
	if spec.BioSamples {
		if g.BioSamples, err = databases.NewDatabase(databases.BioSamples); err != nil {
			return nil, err
		}
	}
	if spec.COPO {
		db, err := databases.NewDatabase(databases.COPO)
		if err != nil {
			return nil, err
		}
		source, ok := db.(stages.CrateSource)
		if !ok {
			return nil, &NoCrateSourceError{Database: databases.COPO}
		}
		g.COPO = source
	}
	return g, nil
}

func barcodeStages(ctx context.Context, c *crate.Crate, spec *Specification) (Stages, error) {
	bold, err := databases.NewDatabase(databases.BOLD)
	if err != nil {
		return nil, err
	}
	b := &stages.Barcode{
		Crate:              c,
		BOLD:               bold,
		Ethics:             spec.Ethics,
		Concurrency:        spec.Concurrency,
		SequencingProtocol: spec.SequencingProtocol,
		Workflow:           spec.Workflow,
	}
	if spec.ProcessId != "" {
		process, err := b.Process(ctx, spec.ProcessId)
		if err != nil {
			return nil, err
		}
		slog.Info(fmt.Sprintf("BOLD process %s: sample %s, species %s",
			process.ProcessId, process.SampleId, process.Species))
		if len(spec.Samples) == 0 {
			spec.Samples = []string{process.SampleId}
		}
		if len(spec.Sequencing) == 0 {
			spec.Sequencing = []string{process.ProcessId}
		}
		if len(spec.Assemblies) == 0 {
			spec.Assemblies = []string{process.ProcessId}
		}
		if process.Species != "" {
			species := process.SpeciesCredit()
			if !slices.ContainsFunc(spec.Credit.Species, func(s credit.Species) bool {
				return s.Id() == species.Id()
			}) {
				spec.Credit.Species = append(spec.Credit.Species, species)
			}
		}
	}
	return b, nil
}

// The validation crate's analysis stage holds the validation runs, one per
// BOLD process in the report; species named by the report are added to the
// credit metadata.
func validationStages(c *crate.Crate, spec *Specification) (Stages, error) {
	report, err := stages.ReadReport(spec.ValidationTSV)
	if err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("Validation report %s covers %d BOLD process(es)",
		spec.ValidationTSV, len(report.ProcessIds)))
	if len(spec.Assemblies) == 0 {
		spec.Assemblies = report.ProcessIds
	}
	for _, name := range report.Species {
		if !slices.ContainsFunc(spec.Credit.Species, func(s credit.Species) bool {
			return s.ScientificName == name
		}) {
			spec.Credit.Species = append(spec.Credit.Species, credit.Species{ScientificName: name})
		}
	}
	return &stages.Validation{
		Crate: c,
		FASTA: spec.ValidationFASTA,
		TSV:   spec.ValidationTSV,
		Tool:  spec.ValidationTool,
	}, nil
}

func appendRefs(node *crate.Node, property string, refs []crate.Ref) error {
	values := make([]any, len(refs))
	for i, ref := range refs {
		values[i] = ref
	}
	return node.Append(property, values...)
}

// Assembles the crate described by the given specification without writing
// it. Any error aborts the assembly.
func Assemble(ctx context.Context, spec Specification) (*crate.Crate, error) {
	c := crate.New()
	builder, err := newStages(ctx, c, &spec)
	if err != nil {
		return nil, err
	}
	if len(spec.Samples)+len(spec.Sequencing)+len(spec.Assemblies) == 0 {
		return nil, &NoAccessionsError{}
	}

	// organizations must be in place before the stages refer to them
	if err := spec.Credit.AddTo(c); err != nil {
		return nil, err
	}

	var parts, assemblies []crate.Ref
	for _, stage := range []struct {
		Name       string
		Accessions []string
		Build      func(context.Context, []string) ([]crate.Ref, error)
	}{
		{"sample", spec.Samples, builder.Samples},
		{"sequencing", spec.Sequencing, builder.Sequencing},
		{"assembly", spec.Assemblies, builder.Assemblies},
	} {
		if len(stage.Accessions) == 0 {
			continue
		}
		slog.Info(fmt.Sprintf("Building %s stage (%d accession(s))", stage.Name, len(stage.Accessions)))
		refs, err := stage.Build(ctx, stage.Accessions)
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", stage.Name, err)
		}
		parts = append(parts, refs...)
		if stage.Name == "assembly" {
			assemblies = refs
		}
	}

	if err := appendRefs(c.Root, "hasPart", parts); err != nil {
		return nil, err
	}
	if err := appendRefs(c.Root, "mainEntity", assemblies); err != nil {
		return nil, err
	}
	return c, nil
}

// Runs the pipeline for the given specification: assembles the crate, writes
// it (and its manifest) to the output directory, and validates it. Validation
// issues are returned in the result; they do not cause an error.
func Run(ctx context.Context, spec Specification) (Result, error) {
	c, err := Assemble(ctx, spec)
	if err != nil {
		return Result{}, err
	}
	result := Result{Crate: c}
	doc, err := c.Document()
	if err != nil {
		return result, err
	}

	if spec.Output != "" {
		var pkg *datapackage.Package
		if spec.Manifest {
			pkg, err = manifest.New(c, spec.Credit)
			if err != nil {
				return result, fmt.Errorf("creating manifest: %w", err)
			}
		}
		if err := c.Write(spec.Output); err != nil {
			return result, fmt.Errorf("writing crate: %w", err)
		}
		if pkg != nil {
			result.ManifestFile, err = manifest.Save(pkg, spec.Output)
			if err != nil {
				// a crate is only left behind together with its manifest
				os.Remove(filepath.Join(spec.Output, crate.MetadataFile))
				return result, err
			}
		}
		slog.Info(fmt.Sprintf("Wrote crate with %d entities to %s", c.Len(), spec.Output))
	}

	result.Issues, err = crate.Validate(doc, spec.Validation)
	if err != nil {
		return result, err
	}
	for _, issue := range result.Issues {
		slog.Warn(issue.String())
	}
	return result, nil
}
