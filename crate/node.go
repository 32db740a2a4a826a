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
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/bge-barcoding/bgecrate/identifiers"
)

// Kind is the @type of a node.
type Kind string

const (
	Taxon                 Kind = "Taxon"
	BioSample             Kind = "BioSample"
	Collection            Kind = "Collection"
	LabProtocol           Kind = "LabProtocol"
	LabProcess            Kind = "LabProcess"
	CreateAction          Kind = "CreateAction"
	Dataset               Kind = "Dataset"
	File                  Kind = "File"
	Organization          Kind = "Organization"
	Place                 Kind = "Place"
	CreativeWork          Kind = "CreativeWork"
	ComputationalWorkflow Kind = "ComputationalWorkflow"
	SoftwareSourceCode    Kind = "SoftwareSourceCode"
	BioChemEntity         Kind = "BioChemEntity"
)

// Cardinality indicates how many values a property holds.
type Cardinality int

const (
	Single Cardinality = iota
	Multi
)

// properties declared by every kind
var commonProperties = map[string]Cardinality{
	"name":            Single,
	"description":     Single,
	"identifier":      Multi,
	"url":             Single,
	"sameAs":          Multi,
	"conformsTo":      Multi,
	"sdDatePublished": Single,
}

// properties declared by each kind, in addition to the common ones
var kindProperties = map[Kind]map[string]Cardinality{
	Taxon: {
		"scientificName": Single,
		"taxonRank":      Single,
		"parentTaxon":    Single,
	},
	BioSample: {
		"locationOfOrigin": Single,
		"collector":        Single,
		"contributor":      Single,
		"custodian":        Single,
		"ethics":           Single,
		"collectionMethod": Single,
		"dateCollected":    Single,
		"taxonomicRange":   Multi,
		"isPartOf":         Multi,
	},
	Collection: {
		"hasPart": Multi,
	},
	LabProtocol: {
		"version": Single,
	},
	LabProcess: {
		"instrument":          Single,
		"object":              Multi,
		"result":              Multi,
		"agent":               Single,
		"provider":            Single,
		"location":            Single,
		"executesLabProtocol": Single,
		"endDate":             Single,
	},
	CreateAction: {
		"instrument": Single,
		"object":     Multi,
		"result":     Multi,
		"agent":      Single,
		"provider":   Single,
		"location":   Single,
		"endTime":    Single,
	},
	Dataset: {
		"hasPart":        Multi,
		"mentions":       Multi,
		"about":          Multi,
		"license":        Single,
		"datePublished":  Single,
		"mainEntity":     Multi,
		"taxonomicRange": Multi,
	},
	File: {
		"contentSize":    Single,
		"encodingFormat": Single,
		"contentUrl":     Single,
	},
	Organization: {
		"location": Single,
	},
	Place: {
		"geo": Single,
	},
	CreativeWork: {
		"about":   Single,
		"license": Single,
	},
	ComputationalWorkflow: {
		"programmingLanguage": Single,
		"version":             Single,
	},
	SoftwareSourceCode: {
		"programmingLanguage": Single,
		"version":             Single,
	},
	BioChemEntity: {
		"hasRepresentation": Single,
		"taxonomicRange":    Multi,
	},
}

// Returns true if k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, found := kindProperties[k]
	return found
}

// Returns true if k is an action kind (connects instrument, object, result).
func (k Kind) IsAction() bool {
	return k == LabProcess || k == CreateAction
}

// Ref refers to a node by its identifier.
type Ref struct {
	Id identifiers.CanonicalURI
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"@id": string(r.Id)})
}

// Node is a typed entity in the crate graph. Its properties can only be
// changed through Set and Append, which enforce the kinds' declarations.
type Node struct {
	Id    identifiers.CanonicalURI
	Types []Kind
	// property values; single-valued properties hold one element
	properties map[string][]any
}

// Creates a node with the given identifier and kinds.
func NewNode(id identifiers.CanonicalURI, kind Kind, moreKinds ...Kind) *Node {
	return &Node{
		Id:         id,
		Types:      append([]Kind{kind}, moreKinds...),
		properties: make(map[string][]any),
	}
}

// Returns a reference to the node.
func (n *Node) Ref() Ref {
	return Ref{Id: n.Id}
}

// Returns true if the node has the given kind.
func (n *Node) Is(kind Kind) bool {
	return slices.Contains(n.Types, kind)
}

// looks up the cardinality of the named property for this node's kinds
func (n *Node) cardinality(property string) (Cardinality, error) {
	if c, found := commonProperties[property]; found {
		return c, nil
	}
	for _, kind := range n.Types {
		if c, found := kindProperties[kind][property]; found {
			return c, nil
		}
	}
	return Single, &UndeclaredPropertyError{
		Id:       n.Id,
		Property: property,
		Types:    n.Types,
	}
}

// converts a value to its stored form, rejecting unsupported types
func (n *Node) normalize(property string, value any) (any, error) {
	switch v := value.(type) {
	case string, bool, int, int64, float64:
		return v, nil
	case Ref:
		return v, nil
	case *Node:
		if v == nil {
			break
		}
		return v.Ref(), nil
	}
	return nil, &InvalidValueError{
		Id:       n.Id,
		Property: property,
		Value:    value,
	}
}

// Sets a single-valued property.
func (n *Node) Set(property string, value any) error {
	c, err := n.cardinality(property)
	if err != nil {
		return err
	}
	if c != Single {
		return &CardinalityError{
			Id:       n.Id,
			Property: property,
			Message:  "multi-valued property must be appended to",
		}
	}
	v, err := n.normalize(property, value)
	if err != nil {
		return err
	}
	n.properties[property] = []any{v}
	return nil
}

// Appends values to a multi-valued property.
func (n *Node) Append(property string, values ...any) error {
	c, err := n.cardinality(property)
	if err != nil {
		return err
	}
	if c != Multi {
		return &CardinalityError{
			Id:       n.Id,
			Property: property,
			Message:  "single-valued property must be set",
		}
	}
	if len(values) == 0 {
		return nil
	}
	normalized := make([]any, len(values))
	for i, value := range values {
		if normalized[i], err = n.normalize(property, value); err != nil {
			return err
		}
	}
	n.properties[property] = append(n.properties[property], normalized...)
	return nil
}

// Returns the value of a single-valued property.
func (n *Node) Get(property string) (any, bool) {
	values, found := n.properties[property]
	if !found || len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// Returns the values of a property, in order.
func (n *Node) Values(property string) []any {
	return slices.Clone(n.properties[property])
}

// Returns the references held by a property, in order.
func (n *Node) Refs(property string) []Ref {
	var refs []Ref
	for _, value := range n.properties[property] {
		if ref, ok := value.(Ref); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Returns the names of the node's properties in sorted order.
func (n *Node) Properties() []string {
	names := make([]string, 0, len(n.properties))
	for name := range n.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Nodes are written with @id and @type first, followed by their properties in
// sorted order. Multi-valued properties are always written as arrays.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"@id":`)
	id, err := json.Marshal(string(n.Id))
	if err != nil {
		return nil, err
	}
	buf.Write(id)

	buf.WriteString(`,"@type":`)
	var types []byte
	if len(n.Types) == 1 {
		types, err = json.Marshal(n.Types[0])
	} else {
		types, err = json.Marshal(n.Types)
	}
	if err != nil {
		return nil, err
	}
	buf.Write(types)

	for _, name := range n.Properties() {
		key, _ := json.Marshal(name)
		var value []byte
		if c, _ := n.cardinality(name); c == Multi {
			value, err = json.Marshal(n.properties[name])
		} else {
			value, err = json.Marshal(n.properties[name][0])
		}
		if err != nil {
			return nil, fmt.Errorf("Couldn't encode property '%s' of %s: %w", name, n.Id, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Editor applies a sequence of updates to a node, stopping at the first
// error.
type Editor struct {
	node *Node
	err  error
}

// Returns an editor for the node.
func (n *Node) Edit() *Editor {
	return &Editor{node: n}
}

func (e *Editor) Set(property string, value any) *Editor {
	if e.err == nil {
		e.err = e.node.Set(property, value)
	}
	return e
}

// Sets a string property only if the value is non-empty.
func (e *Editor) SetNonEmpty(property, value string) *Editor {
	if value == "" {
		return e
	}
	return e.Set(property, value)
}

func (e *Editor) Append(property string, values ...any) *Editor {
	if e.err == nil {
		e.err = e.node.Append(property, values...)
	}
	return e
}

// Returns the first error encountered, if any.
func (e *Editor) Err() error {
	return e.err
}
