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

// Package manifest describes the downloadable sequence files referenced by a
// crate as a Frictionless data package (https://specs.frictionlessdata.io/),
// so they can be fetched with standard data tooling.
package manifest

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/frictionlessdata/datapackage-go/datapackage"
	"github.com/frictionlessdata/datapackage-go/validator"

	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/credit"
	"github.com/bge-barcoding/bgecrate/stages"
)

// name of the manifest file written next to the crate's metadata
const Filename = "datapackage.json"

// a Frictionless data package describing a set of related resources
// (https://specs.frictionlessdata.io/data-package/)
type DataPackage struct {
	// list of contributors to the data package
	Contributors []Contributor `json:"contributors,omitempty"`
	// a timestamp indicated when the package was created
	Created string `json:"created,omitempty"`
	// a Markdown description of the data package
	Description string `json:"description,omitempty"`
	// an array of string keywords to assist users searching for the data package
	// in catalogs
	Keywords []string `json:"keywords,omitempty"`
	// a list identifying the license or licenses under which this resource is
	// managed (optional)
	Licenses []DataLicense `json:"licenses,omitempty"`
	// the name of the data package
	Name string `json:"name"`
	// the profile of this descriptor per the DataPackage profiles specification
	// (https://specs.frictionlessdata.io/profiles/#language)
	Profile string `json:"profile,omitempty"`
	// a list of resources that belong to the package
	Resources []DataResource `json:"resources"`
	// a title or one sentence description for the data package
	Title string `json:"title,omitempty"`
}

// a Frictionless data resource describing a downloadable file
// (https://specs.frictionlessdata.io/data-resource/)
type DataResource struct {
	// the size of the resource's file in bytes, if known
	Bytes int64 `json:"bytes,omitempty"`
	// indicates the format of the resource's file, often used as an extension
	Format string `json:"format,omitempty"`
	// the mediatype/mimetype of the resource (optional, e.g. "application/gzip")
	MediaType string `json:"mediatype,omitempty"`
	// the name of the resource, unique within the package
	Name string `json:"name"`
	// the URL at which the resource's file is retrieved
	Path string `json:"path"`
	// a title or label for the resource (optional)
	Title string `json:"title,omitempty"`
}

// information about a license associated with a data package
type DataLicense struct {
	// a URI at which the license text may be retrieved
	Path string `json:"path"`
	// the descriptive title of the license (optional)
	Title string `json:"title,omitempty"`
}

// information about a contributor to a data package
type Contributor struct {
	// a fully qualified http URL pointing to a relevant location online for the
	// contributor
	Path string `json:"path,omitempty"`
	// the role of the contributor ("author", "publisher", "maintainer",
	// "wrangler", "contributor")
	Role string `json:"role"`
	// name/title of the contributor (name for person, name/title of organization)
	Title string `json:"title"`
}

var invalidNameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// returns a resource name (lowercase alphanumerics, ".", "_", and "-")
// derived from the given file name
func resourceName(fileName string) string {
	name := strings.Trim(invalidNameChars.ReplaceAllString(strings.ToLower(fileName), "-"), "-")
	if name == "" {
		name = "resource"
	}
	return name
}

// returns the HTTPS location of a file given by an FTP location on a public
// EBI server, which serves the same paths over HTTPS
func downloadURL(location string) (string, bool) {
	switch {
	case strings.HasPrefix(location, "https://"), strings.HasPrefix(location, "http://"):
		return location, true
	case strings.HasPrefix(location, "ftp://"):
		return "https://" + strings.TrimPrefix(location, "ftp://"), true
	default:
		return "", false
	}
}

func format(location string, encodingFormat string) (string, string) {
	var f, mediaType string
	switch encodingFormat {
	case stages.FASTQFormat:
		f = "fastq"
	case stages.FASTAFormat:
		f = "fasta"
	}
	if strings.HasSuffix(location, ".gz") {
		mediaType = "application/gzip"
	}
	if f == "" {
		f = strings.TrimPrefix(filepath.Ext(strings.TrimSuffix(location, ".gz")), ".")
	}
	return f, mediaType
}

// returns resources for the crate's File nodes that can be downloaded, in the
// order they were added to the crate
func resources(c *crate.Crate) []DataResource {
	var resources []DataResource
	names := make(map[string]int)
	for _, node := range c.Nodes() {
		if !node.Is(crate.File) {
			continue
		}
		path, ok := downloadURL(node.Id.String())
		if !ok {
			continue
		}
		name := resourceName(filepath.Base(path))
		if n := names[name]; n > 0 {
			names[name] = n + 1
			name = fmt.Sprintf("%s-%d", name, n+1)
		} else {
			names[name] = 1
		}
		resource := DataResource{
			Name: name,
			Path: path,
		}
		if title, found := node.Get("name"); found {
			resource.Title, _ = title.(string)
		}
		if size, found := node.Get("contentSize"); found {
			if s, ok := size.(string); ok {
				resource.Bytes, _ = strconv.ParseInt(s, 10, 64)
			}
		}
		encodingFormat, _ := node.Get("encodingFormat")
		s, _ := encodingFormat.(string)
		resource.Format, resource.MediaType = format(path, s)
		resources = append(resources, resource)
	}
	return resources
}

// Creates a data package listing the downloadable files of the given crate,
// credited as described by the given metadata. Returns nil if the crate
// references no downloadable files.
func New(c *crate.Crate, metadata credit.CreditMetadata) (*datapackage.Package, error) {
	pkg := DataPackage{
		Name:        "manifest",
		Title:       metadata.Title,
		Description: metadata.Description,
		Created:     time.Now().Format(time.RFC3339),
		Profile:     "data-package",
		Keywords:    []string{"bge", "ro-crate", "manifest"},
		Resources:   resources(c),
	}
	if len(pkg.Resources) == 0 {
		return nil, nil
	}
	if metadata.License.Id != "" {
		pkg.Licenses = []DataLicense{{Path: metadata.License.Id, Title: metadata.License.Name}}
	}
	for _, org := range metadata.Contributors {
		pkg.Contributors = append(pkg.Contributors, Contributor{
			Title: org.OrganizationName,
			Path:  org.Url,
			Role:  "contributor",
		})
	}

	// datapackage-go works with generic descriptors
	data, err := json.Marshal(pkg)
	if err != nil {
		return nil, err
	}
	var descriptor map[string]any
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, err
	}
	return datapackage.New(descriptor, ".", validator.InMemoryLoader())
}

// Writes the data package for the given crate into the given directory,
// returning the path of the written file, or "" if the crate has no
// downloadable files.
func Write(c *crate.Crate, metadata credit.CreditMetadata, dir string) (string, error) {
	manifest, err := New(c, metadata)
	if err != nil {
		return "", fmt.Errorf("creating manifest: %w", err)
	}
	if manifest == nil {
		return "", nil
	}
	return Save(manifest, dir)
}

// Saves the given data package into the given directory, returning the path
// of the written file.
func Save(manifest *datapackage.Package, dir string) (string, error) {
	path := filepath.Join(dir, Filename)
	if err := manifest.SaveDescriptor(path); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}

// Reads the data package in the given directory.
func Read(dir string) (*datapackage.Package, error) {
	return datapackage.Load(filepath.Join(dir, Filename), validator.InMemoryLoader())
}
