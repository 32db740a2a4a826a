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
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/identifiers"
)

const barcodeValidatorDescription = "A Python-based toolkit for validating DNA barcode " +
	"sequences through structural and taxonomic validation."

// the barcode validation toolkit, used unless another tool is configured
var BarcodeValidator = Protocol{
	Id:          "https://github.com/naturalis/barcode_validator",
	Name:        "DNA Barcode Validator",
	Description: barcodeValidatorDescription,
	URL:         "https://github.com/naturalis/barcode_validator",
}

// encoding format of validation reports
const TSVFormat = "text/tab-separated-values"

// columns of a validation report
const (
	sequenceIdColumn = "sequence_id"
	speciesColumn    = "species"
)

// Report summarizes the tab-separated report written by a barcode validation
// run, which has one row per validated sequence.
type Report struct {
	// BOLD process IDs of the validated sequences, in order of first
	// appearance
	ProcessIds []string
	// species of the validated sequences, in order of first appearance
	Species []string
}

// indicates that a validation report cannot be used
type ReportError struct {
	Path, Message string
}

func (e ReportError) Error() string {
	return fmt.Sprintf("Invalid validation report %s: %s", e.Path, e.Message)
}

// Reads the validation report at the given path. The BOLD process ID of a
// sequence is the part of its sequence_id before the first underscore.
func ReadReport(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return Report{}, &ReportError{Path: path, Message: err.Error()}
	}
	if len(records) < 2 {
		return Report{}, &ReportError{Path: path, Message: "no sequences"}
	}
	columns := make(map[string]int)
	for i, name := range records[0] {
		columns[strings.TrimSpace(name)] = i
	}
	sequenceId, found := columns[sequenceIdColumn]
	if !found {
		return Report{}, &ReportError{Path: path, Message: fmt.Sprintf("no %s column", sequenceIdColumn)}
	}
	species, haveSpecies := columns[speciesColumn]

	var report Report
	seenProcesses, seenSpecies := make(map[string]bool), make(map[string]bool)
	for _, record := range records[1:] {
		processId, _, _ := strings.Cut(strings.TrimSpace(record[sequenceId]), "_")
		if processId != "" && !seenProcesses[processId] {
			seenProcesses[processId] = true
			report.ProcessIds = append(report.ProcessIds, processId)
		}
		if haveSpecies {
			if name := strings.TrimSpace(record[species]); name != "" && !seenSpecies[name] {
				seenSpecies[name] = true
				report.Species = append(report.Species, name)
			}
		}
	}
	if len(report.ProcessIds) == 0 {
		return Report{}, &ReportError{Path: path, Message: "no BOLD process IDs"}
	}
	return report, nil
}

// indicates that a crate flavour has no such stage
type UnsupportedStageError struct {
	Flavour, Stage string
}

func (e UnsupportedStageError) Error() string {
	return fmt.Sprintf("A %s crate has no %s stage", e.Flavour, e.Stage)
}

// Validation builds a crate describing a barcode validation run: the
// validated barcodes (FASTA), the validation report (TSV), and one validation
// action per BOLD process whose sequences were validated. Both files are
// copied into the crate.
type Validation struct {
	Crate *crate.Crate
	// local paths of the validated barcodes and of the validation report
	FASTA, TSV string
	// the validation tool (BarcodeValidator if empty)
	Tool Protocol

	tool       *crate.Node
	fasta, tsv *crate.Node
}

func (v *Validation) Samples(ctx context.Context, accessions []string) ([]crate.Ref, error) {
	return nil, &UnsupportedStageError{Flavour: "validation", Stage: "sample"}
}

func (v *Validation) Sequencing(ctx context.Context, accessions []string) ([]crate.Ref, error) {
	return nil, &UnsupportedStageError{Flavour: "validation", Stage: "sequencing"}
}

// adds a File node for a local file, copied into the crate under its base
// name
func (v *Validation) addLocalFile(path, name, description, format string) (*crate.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	id := identifiers.CanonicalURI(filepath.Base(path))
	if _, found := v.Crate.Get(id); found {
		return nil, fmt.Errorf("Another file is already named %s in the crate", id)
	}
	file, err := addFile(v.Crate, id, name, strconv.FormatInt(info.Size(), 10), format)
	if err != nil {
		return nil, err
	}
	if err := file.Set("description", description); err != nil {
		return nil, err
	}
	return file, v.Crate.AddPayload(id, path)
}

func (v *Validation) addFiles() error {
	var err error
	v.fasta, err = v.addLocalFile(v.FASTA, "Barcodes in FASTA format",
		"The DNA barcodes checked by the validation run", FASTAFormat)
	if err != nil {
		return err
	}
	v.tsv, err = v.addLocalFile(v.TSV, "Barcode process details in TSV format",
		"Details of each barcode validation run with different parameters", TSVFormat)
	if err != nil {
		return err
	}
	tool := v.Tool
	if tool.Id == "" && tool.Name == "" {
		tool = BarcodeValidator
	}
	v.tool, err = tool.withDefaults(BarcodeValidator.Name, BarcodeValidator.Description).
		addTo(v.Crate, "validation-tool", crate.SoftwareSourceCode)
	return err
}

// Adds the barcodes and the validation report to the crate, with a
// validation action for each of the given BOLD process IDs. The actions are
// mentioned by the root dataset. Returns references to the two files.
func (v *Validation) Assemblies(ctx context.Context, processIds []string) ([]crate.Ref, error) {
	processIds = unique("validation", processIds)
	if v.fasta == nil {
		if err := v.addFiles(); err != nil {
			return nil, err
		}
	}
	actions := make([]any, 0, len(processIds))
	for _, processId := range processIds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		action, err := crate.NewAction(identifiers.Fragment(processId+"-validation"), crate.CreateAction,
			v.tool.Ref(), []crate.Ref{v.fasta.Ref()}, []crate.Ref{v.tsv.Ref()})
		if err != nil {
			return nil, err
		}
		err = action.Edit().
			Set("name", fmt.Sprintf("Validation for BOLD process ID %s", processId)).
			Append("identifier", processId).
			Err()
		if err != nil {
			return nil, err
		}
		actions = append(actions, v.Crate.Add(action).Ref())
	}
	if err := v.Crate.Root.Append("mentions", actions...); err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("Added %d validation action(s)", len(actions)))
	return []crate.Ref{v.fasta.Ref(), v.tsv.Ref()}, nil
}
