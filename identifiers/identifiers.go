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

// Package identifiers builds the canonical URIs that identify every entity in
// a crate.
package identifiers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// identifiers.org prefixes for the registries we resolve accessions against
const (
	ENA        = "ena.embl"
	BioSamples = "biosample"
	Assembly   = "insdc.gca"
	Taxonomy   = "taxonomy"
)

const identifiersOrg = "https://identifiers.org/"

// A CanonicalURI identifies a node in a crate. It is either an absolute URI
// (usually an identifiers.org permalink) or a fragment ("#name") that is only
// meaningful within a single document.
type CanonicalURI string

// Returns the resolvable identifiers.org permalink for the given accession in
// the registry with the given prefix.
func Permalink(prefix, accession string) CanonicalURI {
	return CanonicalURI(fmt.Sprintf("%s%s:%s", identifiersOrg, prefix, accession))
}

// Returns a document-local identifier with the given name. Characters not
// allowed in an IRI fragment (e.g. the spaces in BOLD sample ids) are
// percent-encoded.
func Fragment(name string) CanonicalURI {
	return CanonicalURI("#" + url.PathEscape(strings.TrimPrefix(name, "#")))
}

// Returns a new document-local identifier of the form #prefix-<uuid>. These
// differ from run to run.
func NewFragment(prefix string) CanonicalURI {
	return Fragment(fmt.Sprintf("%s-%s", prefix, uuid.New().String()))
}

// Returns a CanonicalURI for an external absolute URL (e.g. a ROR or GeoNames
// identifier), or an error if the URL is not absolute.
func URL(u string) (CanonicalURI, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", &InvalidURIError{URI: u, Message: err.Error()}
	}
	if !parsed.IsAbs() {
		return "", &InvalidURIError{URI: u, Message: "not an absolute URI"}
	}
	return CanonicalURI(u), nil
}

// Parses the given string as either an absolute URI or a fragment.
func Parse(s string) (CanonicalURI, error) {
	if strings.HasPrefix(s, "#") {
		if len(s) == 1 {
			return "", &InvalidURIError{URI: s, Message: "empty fragment"}
		}
		return CanonicalURI(s), nil
	}
	return URL(s)
}

// Returns true if the URI is document-local.
func (u CanonicalURI) IsFragment() bool {
	return strings.HasPrefix(string(u), "#")
}

func (u CanonicalURI) String() string {
	return string(u)
}

// indicates that a string cannot serve as a CanonicalURI
type InvalidURIError struct {
	URI, Message string
}

func (e InvalidURIError) Error() string {
	return fmt.Sprintf("Invalid URI '%s': %s", e.URI, e.Message)
}
