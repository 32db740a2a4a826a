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

// Package crate models an RO-Crate metadata document as a registry of typed
// nodes, and writes and validates such documents.
package crate

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/bge-barcoding/bgecrate/identifiers"
)

const (
	// JSON-LD context of RO-Crate 1.1
	ContextURL = "https://w3id.org/ro/crate/1.1/context"
	// identifier of the RO-Crate 1.1 specification
	ProfileURL = "https://w3id.org/ro/crate/1.1"
	// name of the metadata file in a crate directory
	MetadataFile = "ro-crate-metadata.json"
	// identifier of the root data entity
	RootId = identifiers.CanonicalURI("./")
	// identifier of the metadata file descriptor
	DescriptorId = identifiers.CanonicalURI(MetadataFile)
)

// terms used by this crate that the RO-Crate context does not define
var bioschemasTerms = map[string]any{
	"BioSample":           "https://bioschemas.org/BioSample",
	"LabProcess":          "https://bioschemas.org/LabProcess",
	"LabProtocol":         "https://bioschemas.org/LabProtocol",
	"collector":           "https://bioschemas.org/terms/collector",
	"custodian":           "https://bioschemas.org/terms/custodian",
	"collectionMethod":    "https://bioschemas.org/terms/collectionMethod",
	"dateCollected":       "https://bioschemas.org/terms/dateCollected",
	"ethics":              "https://bioschemas.org/terms/ethics",
	"executesLabProtocol": "https://bioschemas.org/terms/executesLabProtocol",
	"locationOfOrigin":    "https://bioschemas.org/terms/locationOfOrigin",
}

// Returns the JSON-LD context written into every crate.
func Context() []any {
	return []any{ContextURL, bioschemasTerms}
}

// Crate is an RO-Crate under construction. Its registry holds the metadata
// descriptor and the root data entity in addition to all other nodes.
type Crate struct {
	*Registry
	// the root data entity ("./")
	Root *Node
	// the metadata file descriptor
	Descriptor *Node
	// local files copied into the crate directory by Write, keyed by the
	// identifiers of their data entities
	payload map[identifiers.CanonicalURI]string
}

// Creates a crate holding only its descriptor and an empty root dataset.
func New() *Crate {
	c := &Crate{
		Registry: NewRegistry(),
		payload:  make(map[identifiers.CanonicalURI]string),
	}
	c.Descriptor = c.Add(NewNode(DescriptorId, CreativeWork))
	c.Descriptor.Append("conformsTo", Ref{Id: ProfileURL})
	c.Descriptor.Set("about", Ref{Id: RootId})
	c.Root = c.Add(NewNode(RootId, Dataset))
	return c
}

// Attaches the local file at the given path to the crate as the content of the
// data entity with the given relative identifier. Write copies it into the
// crate directory.
func (c *Crate) AddPayload(id identifiers.CanonicalURI, path string) error {
	if id.IsFragment() || filepath.IsAbs(string(id)) || !filepath.IsLocal(filepath.FromSlash(string(id))) {
		return fmt.Errorf("Payload identifier %s is not a path within the crate", id)
	}
	if existing, found := c.payload[id]; found && existing != path {
		return fmt.Errorf("Payload %s is already provided by %s", id, existing)
	}
	c.payload[id] = path
	return nil
}

// Creates a LabProcess or CreateAction node connecting an instrument to the
// objects it acts upon and the results it produces.
func NewAction(id identifiers.CanonicalURI, kind Kind, instrument Ref, objects, results []Ref) (*Node, error) {
	if !kind.IsAction() {
		return nil, fmt.Errorf("%s is not an action type", kind)
	}
	action := NewNode(id, kind)
	if err := action.Set("instrument", instrument); err != nil {
		return nil, err
	}
	for _, object := range objects {
		if err := action.Append("object", object); err != nil {
			return nil, err
		}
	}
	for _, result := range results {
		if err := action.Append("result", result); err != nil {
			return nil, err
		}
	}
	return action, nil
}

// Creates a Collection node whose parts are the given members, in order.
func NewCollection(id identifiers.CanonicalURI, members []Ref) *Node {
	collection := NewNode(id, Collection)
	for _, member := range members {
		collection.Append("hasPart", member)
	}
	return collection
}

type document struct {
	Context []any   `json:"@context"`
	Graph   []*Node `json:"@graph"`
}

// A crate is written as a flattened JSON-LD document whose graph holds its
// nodes in the order they were added.
func (c *Crate) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{
		Context: Context(),
		Graph:   c.Nodes(),
	})
}

// Returns the crate's metadata document as generic JSON, as read by Validate.
func (c *Crate) Document() (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	err = json.Unmarshal(data, &doc)
	return doc, err
}

// Writes the crate's metadata file into the given directory, creating the
// directory if needed. The file is replaced atomically, so an existing crate
// is never left half-written.
func (c *Crate) Write(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, id := range slices.Sorted(maps.Keys(c.payload)) {
		if err := copyPayload(c.payload[id], filepath.Join(dir, filepath.FromSlash(string(id)))); err != nil {
			return fmt.Errorf("Couldn't copy %s into the crate: %w", id, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".ro-crate-metadata-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, MetadataFile))
}

// copies a payload file into place, unless it is already there
func copyPayload(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()
	sourceInfo, err := in.Stat()
	if err != nil {
		return err
	}
	if targetInfo, err := os.Stat(target); err == nil && os.SameFile(sourceInfo, targetInfo) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".payload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Reads the metadata document of the crate in the given directory.
func Read(dir string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("Couldn't parse %s in %s: %w", MetadataFile, dir, err)
	}
	return doc, nil
}
