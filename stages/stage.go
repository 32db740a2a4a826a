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

// Package stages builds the sample, sequencing, and assembly stages of a crate
// from the records of upstream databases. Each stage turns a list of
// accessions into nodes, resolving the nodes of earlier stages through the
// crate's registry.
package stages

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/identifiers"
)

// Unknown is stored for properties whose value is not provided by any
// upstream database.
const Unknown = "unknown"

// profile to which sample nodes conform
const SampleProfile = "https://bioschemas.org/profiles/Sample/0.2-RELEASE-2018_11_10"

// identifiers of the collections grouping the members of a stage
const (
	SampleCollection     = identifiers.CanonicalURI("#sample-collection")
	SequencingCollection = identifiers.CanonicalURI("#sequencing-collection")
	AnalysisCollection   = identifiers.CanonicalURI("#analysis-collection")
)

// encoding formats (EDAM) of downloadable sequence files
const (
	FASTQFormat = "http://edamontology.org/format_1930"
	FASTAFormat = "http://edamontology.org/format_1929"
)

// Protocol describes a lab protocol or workflow executed by the actions of a
// stage.
type Protocol struct {
	// absolute URL identifying the protocol (a local identifier is generated
	// if empty)
	Id string
	// human-readable name
	Name string
	// description
	Description string
	// landing page
	URL string
}

// returns the protocol with its name and description filled in from the
// given defaults where absent
func (p Protocol) withDefaults(name, description string) Protocol {
	if p.Name == "" {
		p.Name = name
	}
	if p.Description == "" {
		p.Description = description
	}
	return p
}

// adds a node for the protocol to the crate, identified by its Id or by a new
// fragment with the given prefix
func (p Protocol) addTo(c *crate.Crate, fragment string, kind crate.Kind, moreKinds ...crate.Kind) (*crate.Node, error) {
	id := identifiers.NewFragment(fragment)
	if p.Id != "" {
		var err error
		if id, err = identifiers.URL(p.Id); err != nil {
			return nil, err
		}
	}
	node := crate.NewNode(id, kind, moreKinds...)
	err := node.Edit().
		SetNonEmpty("name", p.Name).
		SetNonEmpty("description", p.Description).
		SetNonEmpty("url", p.URL).
		Err()
	if err != nil {
		return nil, err
	}
	return c.Add(node), nil
}

// returns the given accessions with duplicates removed, preserving the order
// of first appearance
func unique(stage string, accessions []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(accessions))
	for _, accession := range accessions {
		if seen[accession] {
			slog.Warn(fmt.Sprintf("Duplicate %s accession %s ignored", stage, accession))
			continue
		}
		seen[accession] = true
		result = append(result, accession)
	}
	return result
}

// groups the members of a stage in a collection node if there is more than
// one, returning the members
func collect(c *crate.Crate, id identifiers.CanonicalURI, members []crate.Ref) []crate.Ref {
	if len(members) > 1 {
		c.Add(crate.NewCollection(id, members))
	}
	return members
}

// returns the value of a record field, or Unknown if it is empty
func orUnknown(value string) string {
	if value == "" {
		return Unknown
	}
	return value
}

// returns the location of a downloadable file given as a host/path without a
// scheme, as reported by ENA
func fileLocation(path string) identifiers.CanonicalURI {
	if strings.Contains(path, "://") {
		return identifiers.CanonicalURI(path)
	}
	return identifiers.CanonicalURI("ftp://" + path)
}

// returns the name of a file given its location
func baseName(location identifiers.CanonicalURI) string {
	s := strings.TrimRight(location.String(), "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// adds a File node for a downloadable file to the crate
func addFile(c *crate.Crate, location identifiers.CanonicalURI, name, size, format string) (*crate.Node, error) {
	file := crate.NewNode(location, crate.File)
	err := file.Edit().
		Set("name", name).
		SetNonEmpty("contentSize", size).
		SetNonEmpty("encodingFormat", format).
		Err()
	if err != nil {
		return nil, err
	}
	return c.Add(file), nil
}

// sets an action's provider to the registered organization with the given
// identifier, and its location to that of the organization
func setProvider(c *crate.Crate, action *crate.Node, organization, dependent string) error {
	if organization == "" {
		return nil
	}
	org, err := c.Require(identifiers.CanonicalURI(organization), dependent)
	if err != nil {
		return err
	}
	if err := action.Set("provider", org); err != nil {
		return err
	}
	if location, found := org.Get("location"); found {
		return action.Set("location", location)
	}
	return nil
}
