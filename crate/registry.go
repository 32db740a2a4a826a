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
	"sync"

	"github.com/bge-barcoding/bgecrate/identifiers"
)

// Registry holds every node of a crate under construction, keyed by
// identifier, and remembers the order in which they were added.
type Registry struct {
	mu    sync.Mutex
	nodes map[identifiers.CanonicalURI]*Node
	order []identifiers.CanonicalURI
}

func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[identifiers.CanonicalURI]*Node),
	}
}

// Adds a node to the registry, returning the registered node. If a node with
// the same identifier exists, it is returned instead and the given node is
// discarded.
func (r *Registry) Add(node *Node) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, found := r.nodes[node.Id]; found {
		return existing
	}
	r.nodes[node.Id] = node
	r.order = append(r.order, node.Id)
	return node
}

// Returns the node with the given identifier, if any.
func (r *Registry) Get(id identifiers.CanonicalURI) (*Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, found := r.nodes[id]
	return node, found
}

// Returns the node with the given identifier, or a MissingDependencyError
// naming the dependent entity if there is none.
func (r *Registry) Require(id identifiers.CanonicalURI, dependent string) (*Node, error) {
	if node, found := r.Get(id); found {
		return node, nil
	}
	return nil, &MissingDependencyError{
		Dependent: dependent,
		Id:        id,
	}
}

// Returns all nodes in the order they were added.
func (r *Registry) Nodes() []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	nodes := make([]*Node, len(r.order))
	for i, id := range r.order {
		nodes[i] = r.nodes[id]
	}
	return nodes
}

// Returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
