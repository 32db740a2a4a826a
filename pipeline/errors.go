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
	"fmt"
)

// indicates that a specification names an unsupported crate flavour
type UnknownFlavourError struct {
	Flavour string
}

func (e UnknownFlavourError) Error() string {
	return fmt.Sprintf("Unknown crate flavour: '%s' (expected '%s', '%s' or '%s')",
		e.Flavour, Genome, Barcode, Validation)
}

// indicates that a specification provides no accessions for any stage
type NoAccessionsError struct{}

func (e NoAccessionsError) Error() string {
	return "No accessions were provided for any stage"
}

// indicates that a database registered for detached crates cannot load them
type NoCrateSourceError struct {
	Database string
}

func (e NoCrateSourceError) Error() string {
	return fmt.Sprintf("The database '%s' cannot retrieve RO-Crates", e.Database)
}

// indicates that a configured organization has no name and is not one of the
// well-known organizations
type UnnamedOrganizationError struct {
	Id string
}

func (e UnnamedOrganizationError) Error() string {
	return fmt.Sprintf("Organization '%s' has no name", e.Id)
}

// indicates that a crate failed validation with issues of at least the
// configured severity
type ValidationError struct {
	Issues int
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("The crate failed validation with %d issue(s)", e.Issues)
}
