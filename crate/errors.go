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

package crate

import (
	"fmt"
	"strings"

	"github.com/bge-barcoding/bgecrate/identifiers"
)

// This error type is returned when a property is set that none of a node's
// kinds declares.
type UndeclaredPropertyError struct {
	Id       identifiers.CanonicalURI
	Property string
	Types    []Kind
}

func (e UndeclaredPropertyError) Error() string {
	types := make([]string, len(e.Types))
	for i, t := range e.Types {
		types[i] = string(t)
	}
	return fmt.Sprintf("Property '%s' is not declared for %s (%s)",
		e.Property, e.Id, strings.Join(types, ", "))
}

// This error type is returned when a single-valued property is appended to or
// a multi-valued property is set.
type CardinalityError struct {
	Id       identifiers.CanonicalURI
	Property string
	Message  string
}

func (e CardinalityError) Error() string {
	return fmt.Sprintf("Cannot update property '%s' of %s: %s", e.Property, e.Id, e.Message)
}

// This error type is returned when a property value has an unsupported type.
type InvalidValueError struct {
	Id       identifiers.CanonicalURI
	Property string
	Value    any
}

func (e InvalidValueError) Error() string {
	return fmt.Sprintf("Invalid value for property '%s' of %s: %v (%T)",
		e.Property, e.Id, e.Value, e.Value)
}

// This error type is returned when a node refers to an entity that has not
// been registered.
type MissingDependencyError struct {
	// the entity that needs the missing one
	Dependent string
	// identifier of the missing entity
	Id identifiers.CanonicalURI
}

func (e MissingDependencyError) Error() string {
	return fmt.Sprintf("%s depends on %s, but no such entity exists in the crate. "+
		"Please ensure that entities are added before the entities that refer to them.",
		e.Dependent, e.Id)
}
