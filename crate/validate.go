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
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/piprate/json-gold/ld"
)

// Severity ranks validation issues; lower values are more severe.
type Severity int

const (
	Required Severity = iota
	Recommended
	Optional
)

var severityNames = []string{"REQUIRED", "RECOMMENDED", "OPTIONAL"}

func (s Severity) String() string {
	if s < Required || s > Optional {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// Converts a severity name (e.g. "REQUIRED") to a Severity.
func ParseSeverity(name string) (Severity, error) {
	i := slices.Index(severityNames, strings.ToUpper(name))
	if i < 0 {
		return Required, fmt.Errorf("Unknown severity: '%s'", name)
	}
	return Severity(i), nil
}

// the only profile crates are checked against
const DefaultProfile = "ro-crate-1.1"

// Settings controls validation.
type Settings struct {
	// identifier of the profile to validate against
	Profile string
	// least severe issue to report
	Severity Severity
	// loads remote JSON-LD contexts (fetched over HTTP if nil)
	Loader ld.DocumentLoader
}

// Returns a document loader that fetches contexts with the given client and
// keeps them for subsequent expansions.
func NewDocumentLoader(client *http.Client) ld.DocumentLoader {
	return ld.NewCachingDocumentLoader(ld.NewDefaultDocumentLoader(client))
}

// Issue is a single problem found in a crate.
type Issue struct {
	Severity Severity
	// identifier of the failed check
	Check   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf(`Detected issue of severity %s with check "%s": %s`,
		i.Severity, i.Check, i.Message)
}

// This error type is returned when a crate is validated against a profile
// other than RO-Crate 1.1.
type UnsupportedProfileError struct {
	Profile string
}

func (e UnsupportedProfileError) Error() string {
	return fmt.Sprintf("Unsupported validation profile: '%s' (only '%s' is supported)",
		e.Profile, DefaultProfile)
}

type validation struct {
	settings Settings
	issues   []Issue
	// entities by identifier
	entities map[string]map[string]any
}

func (v *validation) report(severity Severity, check, format string, args ...any) {
	if severity > v.settings.Severity {
		return
	}
	v.issues = append(v.issues, Issue{
		Severity: severity,
		Check:    check,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Checks a crate metadata document against the RO-Crate 1.1 profile,
// returning all issues at least as severe as the settings' severity. No issues
// means the crate is valid.
func Validate(doc map[string]any, settings Settings) ([]Issue, error) {
	if settings.Profile == "" {
		settings.Profile = DefaultProfile
	}
	if settings.Profile != DefaultProfile {
		return nil, &UnsupportedProfileError{Profile: settings.Profile}
	}
	if settings.Loader == nil {
		settings.Loader = NewDocumentLoader(&http.Client{Timeout: 60 * time.Second})
	}
	v := validation{
		settings: settings,
		entities: make(map[string]map[string]any),
	}

	v.checkContext(doc)
	graph, ok := doc["@graph"].([]any)
	if !ok {
		v.report(Required, "ro-crate-graph", "The metadata document has no @graph array")
		return v.issues, nil
	}
	v.checkEntities(graph)
	v.checkDescriptor()
	v.checkRoot()
	v.checkReferences(graph)
	v.checkActions(graph)
	v.checkExpansion(doc, graph)
	return v.issues, nil
}

func (v *validation) checkContext(doc map[string]any) {
	switch context := doc["@context"].(type) {
	case string:
		if context == ContextURL {
			return
		}
	case []any:
		if slices.Contains(context, any(ContextURL)) {
			return
		}
	}
	v.report(Required, "ro-crate-context",
		"The metadata document's @context must include %s", ContextURL)
}

// returns the types of an entity
func types(entity map[string]any) []string {
	switch t := entity["@type"].(type) {
	case string:
		return []string{t}
	case []any:
		var names []string
		for _, name := range t {
			if s, ok := name.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}

// returns the identifier held by a reference object, if value is one
func referenceId(value any) (string, bool) {
	ref, ok := value.(map[string]any)
	if !ok || len(ref) != 1 {
		return "", false
	}
	id, ok := ref["@id"].(string)
	return id, ok
}

func (v *validation) checkEntities(graph []any) {
	for i, item := range graph {
		entity, ok := item.(map[string]any)
		if !ok {
			v.report(Required, "entity-identifier", "@graph item %d is not an object", i)
			continue
		}
		id, _ := entity["@id"].(string)
		if id == "" {
			v.report(Required, "entity-identifier", "@graph item %d has no @id", i)
			continue
		}
		if len(types(entity)) == 0 {
			v.report(Required, "entity-type", "Entity %s has no @type", id)
		}
		if _, found := v.entities[id]; found {
			v.report(Required, "entity-unique-identifier", "Entity %s is described more than once", id)
			continue
		}
		v.entities[id] = entity
	}
}

func (v *validation) checkDescriptor() {
	descriptor, found := v.entities[MetadataFile]
	if !found {
		v.report(Required, "ro-crate-metadata-file-descriptor",
			"The metadata file descriptor (%s) is missing", MetadataFile)
		return
	}
	if !slices.Contains(types(descriptor), string(CreativeWork)) {
		v.report(Required, "ro-crate-metadata-file-descriptor",
			"The metadata file descriptor must be a CreativeWork")
	}
	if about, _ := referenceId(descriptor["about"]); about != string(RootId) {
		v.report(Required, "ro-crate-metadata-file-descriptor",
			"The metadata file descriptor must be about the root data entity (%s)", RootId)
	}
	conforms := false
	for _, value := range listOf(descriptor["conformsTo"]) {
		if id, ok := referenceId(value); ok && strings.HasPrefix(id, ProfileURL) {
			conforms = true
		}
	}
	if !conforms {
		v.report(Required, "ro-crate-metadata-file-descriptor",
			"The metadata file descriptor must conform to %s", ProfileURL)
	}
}

func (v *validation) checkRoot() {
	root, found := v.entities[string(RootId)]
	if !found {
		v.report(Required, "ro-crate-root-data-entity", "The root data entity (%s) is missing", RootId)
		return
	}
	if !slices.Contains(types(root), string(Dataset)) {
		v.report(Required, "ro-crate-root-data-entity", "The root data entity must be a Dataset")
	}
	published, _ := root["datePublished"].(string)
	if published == "" {
		v.report(Required, "ro-crate-root-data-entity-date-published",
			"The root data entity has no datePublished")
	} else if !isISO8601(published) {
		v.report(Required, "ro-crate-root-data-entity-date-published",
			"The root data entity's datePublished (%s) is not an ISO 8601 date", published)
	}
	for _, property := range []string{"name", "description", "license"} {
		if _, found := root[property]; !found {
			v.report(Recommended, "ro-crate-root-data-entity-metadata",
				"The root data entity has no %s", property)
		}
	}
}

func isISO8601(date string) bool {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02", "2006-01", "2006"} {
		if _, err := time.Parse(layout, date); err == nil {
			return true
		}
	}
	return false
}

func listOf(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}
	if value == nil {
		return nil
	}
	return []any{value}
}

// every local reference must name an entity in the graph; external ones
// should have a contextual entity
func (v *validation) checkReferences(graph []any) {
	for _, item := range graph {
		entity, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := entity["@id"].(string)
		for _, property := range slices.Sorted(maps.Keys(entity)) {
			if strings.HasPrefix(property, "@") {
				continue
			}
			for _, element := range listOf(entity[property]) {
				target, ok := referenceId(element)
				if !ok {
					continue
				}
				if _, found := v.entities[target]; found {
					continue
				}
				if u, err := url.Parse(target); err == nil && u.IsAbs() {
					v.report(Optional, "contextual-entity",
						"%s of %s refers to %s, which is not described in the crate", property, id, target)
				} else {
					v.report(Required, "entity-reference",
						"%s of %s refers to %s, which is not in the crate", property, id, target)
				}
			}
		}
	}
}

func (v *validation) checkActions(graph []any) {
	for _, item := range graph {
		entity, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entityTypes := types(entity)
		if !slices.Contains(entityTypes, string(CreateAction)) && !slices.Contains(entityTypes, string(LabProcess)) {
			continue
		}
		for _, property := range []string{"instrument", "object", "result"} {
			if len(listOf(entity[property])) == 0 {
				v.report(Recommended, "action-properties", "Action %s has no %s", entity["@id"], property)
			}
		}
	}
}

// the document must expand as JSON-LD, and every term it uses must be defined
// by its context
func (v *validation) checkExpansion(doc map[string]any, graph []any) {
	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.DocumentLoader = v.settings.Loader
	if _, err := proc.Expand(doc, opts); err != nil {
		v.report(Required, "jsonld-expansion", "The metadata document cannot be expanded as JSON-LD: %s", err)
		return
	}
	if v.settings.Severity < Recommended {
		return
	}

	context := doc["@context"]
	expand := func(fragment map[string]any) map[string]any {
		fragment["@context"] = context
		expanded, err := proc.Expand(fragment, opts)
		if err != nil || len(expanded) == 0 {
			return nil
		}
		node, _ := expanded[0].(map[string]any)
		return node
	}
	for _, item := range graph {
		entity, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := entity["@id"].(string)
		for _, t := range types(entity) {
			expanded := expand(map[string]any{"@id": id, "@type": t})
			if expandedTypes, _ := expanded["@type"].([]any); len(expandedTypes) == 0 || !isAbsolute(expandedTypes[0]) {
				v.report(Recommended, "jsonld-undefined-term",
					"Type %s of %s is not defined by the crate's context", t, id)
			}
		}
		for _, property := range slices.Sorted(maps.Keys(entity)) {
			value := entity[property]
			if strings.HasPrefix(property, "@") || value == nil {
				continue
			}
			expanded := expand(map[string]any{"@id": id, property: value})
			defined := false
			for key := range expanded {
				if !strings.HasPrefix(key, "@") {
					defined = true
				}
			}
			if !defined {
				v.report(Recommended, "jsonld-undefined-term",
					"Property %s of %s is not defined by the crate's context", property, id)
			}
		}
	}
}

func isAbsolute(value any) bool {
	s, _ := value.(string)
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}
