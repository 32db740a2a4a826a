package crate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bge-barcoding/bgecrate/identifiers"
)

func TestNodeSetAndAppend(t *testing.T) {
	assert := assert.New(t)
	sample := NewNode(identifiers.Permalink(identifiers.ENA, "S1"), BioSample)

	assert.Nil(sample.Set("locationOfOrigin", "Spain"))
	assert.Nil(sample.Set("collector", "X"))
	assert.Nil(sample.Append("identifier", "S1", "a moth"))
	assert.Nil(sample.Append("identifier", identifiers.Permalink(identifiers.BioSamples, "S1").String()))

	value, found := sample.Get("locationOfOrigin")
	assert.True(found)
	assert.Equal("Spain", value)
	assert.Equal([]any{"S1", "a moth", "https://identifiers.org/biosample:S1"}, sample.Values("identifier"))
	assert.Equal([]string{"collector", "identifier", "locationOfOrigin"}, sample.Properties())

	// setting a single-valued property replaces its value
	assert.Nil(sample.Set("collector", "Y"))
	value, _ = sample.Get("collector")
	assert.Equal("Y", value)
}

func TestNodeRejectsUndeclaredProperties(t *testing.T) {
	assert := assert.New(t)
	place := NewNode("https://www.geonames.org/2653941", Place)
	err := place.Set("collector", "X")
	assert.IsType(&UndeclaredPropertyError{}, err)
	assert.Contains(err.Error(), "collector")
	_, found := place.Get("collector")
	assert.False(found)
}

func TestNodeRejectsCardinalityMisuse(t *testing.T) {
	assert := assert.New(t)
	dataset := NewNode("#sequencing", Dataset)
	assert.IsType(&CardinalityError{}, dataset.Set("hasPart", Ref{Id: "#file"}))
	assert.IsType(&CardinalityError{}, dataset.Append("name", "Sequencing"))
}

func TestNodeRejectsUnsupportedValues(t *testing.T) {
	assert := assert.New(t)
	file := NewNode("ftp://ftp.sra.ebi.ac.uk/a_1.fastq.gz", File)
	assert.IsType(&InvalidValueError{}, file.Set("contentSize", []string{"10"}))
	var missing *Node
	assert.IsType(&InvalidValueError{}, file.Set("contentUrl", missing))
}

func TestNodeStoresNodesAsReferences(t *testing.T) {
	assert := assert.New(t)
	wsi := NewNode("https://ror.org/05cy4wa09", Organization)
	process := NewNode("#sequencing-process", LabProcess)
	assert.Nil(process.Set("provider", wsi))
	value, _ := process.Get("provider")
	assert.Equal(Ref{Id: "https://ror.org/05cy4wa09"}, value)
	assert.Nil(process.Append("result", Ref{Id: "#a"}, Ref{Id: "#b"}))
	assert.Equal([]Ref{{Id: "#a"}, {Id: "#b"}}, process.Refs("result"))
}

func TestNodeWithSeveralKinds(t *testing.T) {
	assert := assert.New(t)
	node := NewNode("https://copo-project.org/api/manifest/1?return_type=rocrate", Dataset, BioSample)
	assert.True(node.Is(Dataset))
	assert.True(node.Is(BioSample))
	assert.False(node.Is(File))
	assert.Nil(node.Set("collector", "X"))
	assert.Nil(node.Append("hasPart", Ref{Id: "#x"}))
}

func TestNodeJSON(t *testing.T) {
	assert := assert.New(t)
	file := NewNode("ftp://ftp.sra.ebi.ac.uk/a_1.fastq.gz", File)
	file.Set("contentSize", "10")
	file.Set("name", "a_1.fastq.gz")
	collection := NewCollection("#sample-collection", []Ref{{Id: "#s1"}})
	both := NewNode("#both", Dataset, BioSample)

	data, err := json.Marshal(file)
	assert.Nil(err)
	assert.Equal(`{"@id":"ftp://ftp.sra.ebi.ac.uk/a_1.fastq.gz","@type":"File",`+
		`"contentSize":"10","name":"a_1.fastq.gz"}`, string(data))

	data, err = json.Marshal(collection)
	assert.Nil(err)
	assert.Equal(`{"@id":"#sample-collection","@type":"Collection","hasPart":[{"@id":"#s1"}]}`, string(data))

	data, err = json.Marshal(both)
	assert.Nil(err)
	assert.Equal(`{"@id":"#both","@type":["Dataset","BioSample"]}`, string(data))
}

func TestNewAction(t *testing.T) {
	assert := assert.New(t)
	action, err := NewAction("#assembly-process", CreateAction, Ref{Id: "#workflow"},
		[]Ref{{Id: "#e1"}, {Id: "#e2"}}, []Ref{{Id: "#assembly"}})
	assert.Nil(err)
	assert.True(action.Is(CreateAction))
	instrument, _ := action.Get("instrument")
	assert.Equal(Ref{Id: "#workflow"}, instrument)
	assert.Equal([]Ref{{Id: "#e1"}, {Id: "#e2"}}, action.Refs("object"))
	assert.Equal([]Ref{{Id: "#assembly"}}, action.Refs("result"))

	_, err = NewAction("#not-an-action", Dataset, Ref{Id: "#workflow"}, nil, nil)
	assert.NotNil(err)
}

func TestEditorStopsAtFirstError(t *testing.T) {
	assert := assert.New(t)
	sample := NewNode("#s1", BioSample)
	err := sample.Edit().
		Set("name", "Sample").
		SetNonEmpty("collector", "").
		Set("hasPart", Ref{Id: "#x"}).
		Set("description", "never set").
		Err()
	assert.IsType(&UndeclaredPropertyError{}, err)
	_, found := sample.Get("collector")
	assert.False(found)
	_, found = sample.Get("description")
	assert.False(found)
	name, _ := sample.Get("name")
	assert.Equal("Sample", name)
}
