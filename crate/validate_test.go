package crate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bge-barcoding/bgecrate/cratetest"
)

func settingsFor(severity Severity) Settings {
	return Settings{
		Profile:  DefaultProfile,
		Severity: severity,
		Loader:   &cratetest.ContextLoader{},
	}
}

func checks(issues []Issue) []string {
	var names []string
	for _, issue := range issues {
		names = append(names, issue.Check)
	}
	return names
}

func TestValidCrateHasNoIssues(t *testing.T) {
	assert := assert.New(t)
	doc, err := newTestCrate().Document()
	assert.Nil(err)

	for _, severity := range []Severity{Required, Recommended} {
		issues, err := Validate(doc, settingsFor(severity))
		assert.Nil(err)
		assert.Empty(issues, "unexpected issues at %s: %v", severity, issues)
	}
}

func TestValidateReportsMissingRootMetadata(t *testing.T) {
	assert := assert.New(t)
	c := New()
	doc, _ := c.Document()

	issues, err := Validate(doc, settingsFor(Required))
	assert.Nil(err)
	assert.Equal([]string{"ro-crate-root-data-entity-date-published"}, checks(issues))
	assert.Equal(Required, issues[0].Severity)

	issues, err = Validate(doc, settingsFor(Recommended))
	assert.Nil(err)
	assert.Contains(checks(issues), "ro-crate-root-data-entity-metadata")
}

func TestValidateReportsDanglingReferences(t *testing.T) {
	assert := assert.New(t)
	c := newTestCrate()
	c.Root.Append("hasPart", Ref{Id: "#nowhere"})
	doc, _ := c.Document()
	issues, err := Validate(doc, settingsFor(Required))
	assert.Nil(err)
	assert.Equal([]string{"entity-reference"}, checks(issues))
	assert.Contains(issues[0].Message, "#nowhere")
	assert.Contains(issues[0].String(), `severity REQUIRED with check "entity-reference"`)
}

func TestValidateReportsStructuralProblems(t *testing.T) {
	assert := assert.New(t)
	doc := map[string]any{
		"@context": "https://example.com/context",
		"@graph": []any{
			map[string]any{"@id": "./", "@type": "Dataset", "datePublished": "yesterday"},
			map[string]any{"@id": "#a"},
			map[string]any{"@id": "#a", "@type": "File"},
			map[string]any{"@type": "File"},
		},
	}
	issues, err := Validate(doc, settingsFor(Required))
	assert.Nil(err)
	names := checks(issues)
	assert.Contains(names, "ro-crate-context")
	assert.Contains(names, "ro-crate-metadata-file-descriptor")
	assert.Contains(names, "ro-crate-root-data-entity-date-published")
	assert.Contains(names, "entity-type")
	assert.Contains(names, "entity-unique-identifier")
	assert.Contains(names, "entity-identifier")
	assert.Contains(names, "jsonld-expansion")
}

func TestValidateReportsUndefinedTerms(t *testing.T) {
	assert := assert.New(t)
	c := newTestCrate()
	sample, _ := c.Get("https://identifiers.org/ena.embl:S1")
	sample.Set("collector", "X") // defined by the crate's own context
	doc, _ := c.Document()
	graph := doc["@graph"].([]any)
	graph[len(graph)-1].(map[string]any)["favouriteColour"] = "green"
	graph[len(graph)-1].(map[string]any)["@type"] = "Mystery"

	issues, err := Validate(doc, settingsFor(Required))
	assert.Nil(err)
	assert.Empty(issues)

	issues, err = Validate(doc, settingsFor(Recommended))
	assert.Nil(err)
	assert.Equal([]string{"jsonld-undefined-term", "jsonld-undefined-term"}, checks(issues))
}

func TestValidateReportsIncompleteActions(t *testing.T) {
	assert := assert.New(t)
	c := newTestCrate()
	c.Add(NewNode("#lonely-process", CreateAction))
	doc, _ := c.Document()
	issues, err := Validate(doc, settingsFor(Recommended))
	assert.Nil(err)
	assert.Equal([]string{"action-properties", "action-properties", "action-properties"}, checks(issues))
}

func TestValidateRejectsOtherProfiles(t *testing.T) {
	assert := assert.New(t)
	doc, _ := newTestCrate().Document()
	_, err := Validate(doc, Settings{Profile: "workflow-ro-crate-1.0", Loader: &cratetest.ContextLoader{}})
	assert.IsType(&UnsupportedProfileError{}, err)
}

func TestParseSeverity(t *testing.T) {
	assert := assert.New(t)
	s, err := ParseSeverity("recommended")
	assert.Nil(err)
	assert.Equal(Recommended, s)
	assert.Equal("OPTIONAL", Optional.String())
	_, err = ParseSeverity("SEVERE")
	assert.NotNil(err)
}
