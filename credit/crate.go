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

package credit

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/identifiers"
)

// the event whose date is used as the crate's publication date
const PublishedEvent = "published"

// Returns the URL of the BOLD taxonomy browser page for the given BOLD taxon.
func BoldTaxonPage(taxonId string) identifiers.CanonicalURI {
	return identifiers.CanonicalURI(fmt.Sprintf(
		"https://bench.boldsystems.org/index.php/TaxBrowser_TaxonPage?taxid=%s", url.QueryEscape(taxonId)))
}

// Returns the identifier of the species' Taxon node: its NCBI taxonomy
// permalink if known, else its BOLD taxon page, else a local identifier
// derived from its name.
func (s Species) Id() identifiers.CanonicalURI {
	switch {
	case s.TaxonId != "":
		return identifiers.Permalink(identifiers.Taxonomy, s.TaxonId)
	case s.BoldTaxonId != "":
		return BoldTaxonPage(s.BoldTaxonId)
	default:
		slug := strings.ToLower(strings.Join(strings.Fields(s.ScientificName), "-"))
		return identifiers.Fragment("taxon-" + slug)
	}
}

// Adds a Taxon node for the species to the crate.
func (s Species) AddTo(c *crate.Crate) (*crate.Node, error) {
	taxon := crate.NewNode(s.Id(), crate.Taxon)
	editor := taxon.Edit().
		Set("name", s.ScientificName).
		Set("scientificName", s.ScientificName).
		Set("taxonRank", "species")
	if s.TaxonId != "" && s.BoldTaxonId != "" {
		editor.Append("sameAs", crate.Ref{Id: BoldTaxonPage(s.BoldTaxonId)})
	}
	for _, sameAs := range s.SameAs {
		editor.Append("sameAs", crate.Ref{Id: identifiers.CanonicalURI(sameAs)})
	}
	if err := editor.Err(); err != nil {
		return nil, err
	}
	return c.Add(taxon), nil
}

// Adds an Organization node and a Place node for its location to the crate.
func (o Organization) AddTo(c *crate.Crate) (*crate.Node, error) {
	org := crate.NewNode(identifiers.CanonicalURI(o.OrganizationId), crate.Organization)
	editor := org.Edit().
		Set("name", o.OrganizationName).
		SetNonEmpty("url", o.Url)
	if o.Location.PlaceId != "" {
		place := crate.NewNode(identifiers.CanonicalURI(o.Location.PlaceId), crate.Place)
		if err := place.Edit().SetNonEmpty("name", o.Location.Name).Err(); err != nil {
			return nil, err
		}
		editor.Set("location", c.Add(place))
	}
	if err := editor.Err(); err != nil {
		return nil, err
	}
	return c.Add(org), nil
}

// Adds a CreativeWork node describing the license to the crate.
func (l License) AddTo(c *crate.Crate) (*crate.Node, error) {
	license := crate.NewNode(identifiers.CanonicalURI(l.Id), crate.CreativeWork)
	err := license.Edit().
		SetNonEmpty("name", l.Name).
		SetNonEmpty("url", l.Url).
		Err()
	if err != nil {
		return nil, err
	}
	return c.Add(license), nil
}

// Returns the canonical URI for a related identifier: URLs are kept as they
// are and prefixed accessions (prefix:accession) become permalinks.
func (id PermanentID) URI() (identifiers.CanonicalURI, error) {
	if u, err := url.Parse(id.Id); err == nil && u.Scheme != "" && u.Host != "" {
		return identifiers.URL(id.Id)
	}
	prefix, accession, found := strings.Cut(id.Id, ":")
	if !found || prefix == "" || accession == "" {
		return "", &identifiers.InvalidURIError{
			URI:     id.Id,
			Message: "expected a URL or a prefixed accession (prefix:accession)",
		}
	}
	return identifiers.Permalink(prefix, accession), nil
}

// Returns the date of the publication event, or today's date if there is none.
func (m CreditMetadata) DatePublished() string {
	for _, date := range m.Dates {
		if date.Event == PublishedEvent && date.Date != "" {
			return date.Date
		}
	}
	return time.Now().Format("2006-01-02")
}

// Describes the crate's root dataset with the credit metadata, adding context
// entities for its license, contributors, and species.
func (m CreditMetadata) AddTo(c *crate.Crate) error {
	editor := c.Root.Edit().
		Set("name", m.Title).
		Set("description", m.Description).
		Set("datePublished", m.DatePublished())

	license, err := m.License.AddTo(c)
	if err != nil {
		return err
	}
	editor.Set("license", license)

	for _, related := range m.RelatedIdentifiers {
		uri, err := related.URI()
		if err != nil {
			return err
		}
		editor.Append("identifier", uri.String())
	}
	for _, org := range m.Contributors {
		if _, err := org.AddTo(c); err != nil {
			return err
		}
	}
	for _, species := range m.Species {
		taxon, err := species.AddTo(c)
		if err != nil {
			return err
		}
		editor.Append("about", taxon).Append("taxonomicRange", taxon)
	}
	return editor.Err()
}
