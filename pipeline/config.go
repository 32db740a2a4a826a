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

package pipeline

import (
	"github.com/bge-barcoding/bgecrate/config"
	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/credit"
	"github.com/bge-barcoding/bgecrate/databases"
	"github.com/bge-barcoding/bgecrate/identifiers"
	"github.com/bge-barcoding/bgecrate/stages"
)

func protocol(entity config.EntityConfig) stages.Protocol {
	return stages.Protocol{
		Id:          entity.Id,
		Name:        entity.Name,
		Description: entity.Description,
		URL:         entity.URL,
	}
}

// Returns the validation settings given by the configuration.
func ValidationSettings() (crate.Settings, error) {
	severity, err := crate.ParseSeverity(config.Crate.Validation.Severity)
	if err != nil {
		return crate.Settings{}, err
	}
	return crate.Settings{
		Profile:  config.Crate.Validation.Profile,
		Severity: severity,
		Loader:   crate.NewDocumentLoader(databases.NewHttpClient(config.RequestTimeout())),
	}, nil
}

// returns the configured organization, completed from the well-known
// organization with the same identifier
func organization(org config.OrganizationConfig) (credit.Organization, error) {
	result, _ := credit.KnownOrganization(org.Id)
	result.OrganizationId = org.Id
	if org.Name != "" {
		result.OrganizationName = org.Name
	}
	if org.URL != "" {
		result.Url = org.URL
	}
	if org.Place.Id != "" {
		result.Location = credit.Place{
			PlaceId: org.Place.Id,
			Name:    org.Place.Name,
		}
	}
	if result.OrganizationName == "" {
		return result, &UnnamedOrganizationError{Id: org.Id}
	}
	return result, nil
}

// Returns the credit metadata for the crate's root dataset given by the
// configuration. Metadata is published under CC0 unless another license is
// configured.
func CreditFromConfig() (credit.CreditMetadata, error) {
	metadata := credit.CreditMetadata{
		Title:       config.Crate.Name,
		Description: config.Crate.Description,
		License:     credit.CC0,
	}
	if config.Crate.License.Id != "" {
		metadata.License = credit.License{
			Id:   config.Crate.License.Id,
			Name: config.Crate.License.Name,
			Url:  config.Crate.License.URL,
		}
	}
	if config.Crate.DatePublished != "" {
		metadata.Dates = append(metadata.Dates, credit.EventDate{
			Date:  config.Crate.DatePublished,
			Event: credit.PublishedEvent,
		})
	}
	for _, org := range config.Organizations {
		contributor, err := organization(org)
		if err != nil {
			return metadata, err
		}
		metadata.Contributors = append(metadata.Contributors, contributor)
	}
	for _, species := range config.Species {
		metadata.Species = append(metadata.Species, credit.Species{
			ScientificName: species.Name,
			TaxonId:        species.TaxonId,
			SameAs:         species.SameAs,
		})
	}
	for _, project := range config.Crate.Projects {
		metadata.RelatedIdentifiers = append(metadata.RelatedIdentifiers, credit.PermanentID{
			Id:          identifiers.ENA + ":" + project,
			Description: "ENA project",
		})
	}
	for _, id := range config.Crate.Identifiers {
		metadata.RelatedIdentifiers = append(metadata.RelatedIdentifiers, credit.PermanentID{
			Id: id,
		})
	}
	return metadata, nil
}

// Returns the specification given by the configuration. config.Init must be
// called first.
func FromConfig() (Specification, error) {
	settings, err := ValidationSettings()
	if err != nil {
		return Specification{}, err
	}
	metadata, err := CreditFromConfig()
	if err != nil {
		return Specification{}, err
	}
	return Specification{
		Flavour:            config.Service.Flavour,
		Credit:             metadata,
		Samples:            config.Samples.Accessions,
		Sequencing:         config.Sequencing.Accessions,
		Assemblies:         config.Assemblies.Accessions,
		ProcessId:          config.Barcode.ProcessId,
		BioSamples:         config.Samples.BioSamples,
		COPO:               config.Samples.COPO,
		Ethics:             config.Crate.Ethics,
		Concurrency:        config.Service.Concurrency,
		WetLabProtocol:     protocol(config.Sequencing.WetLabProtocol),
		SequencingProtocol: protocol(config.Sequencing.SequencingProtocol),
		SequencingProvider: config.Sequencing.Provider,
		Workflow:           protocol(config.Assemblies.Workflow),
		AssemblyProvider:   config.Assemblies.Provider,
		ValidationFASTA:    config.Validation.FASTA,
		ValidationTSV:      config.Validation.TSV,
		ValidationTool:     protocol(config.Validation.Tool),
		Output:             config.Service.Output,
		Manifest:           config.Service.Manifest,
		Validation:         settings,
	}, nil
}
