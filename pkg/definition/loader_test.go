package definition

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

const sampleYAML = `
id: cage-check
version: "1.0"
details:
  title: Cage check
  description: Daily cage inspection.
  estimatedDuration: 2
  license: UNLICENSED
options:
  beddings: [paper, corncob, {value: aspen, label: Aspen shavings}]
content:
  - name: beddingChanged
    kind: boolean
    label: Bedding changed
  - name: bedding
    kind: string
    variant: select
    optionsRef: beddings
    visibleWhen: beddingChanged == true
  - name: animals
    kind: record-array
    fieldset:
      - name: tag
        kind: string
      - name: sick
        kind: boolean
      - name: symptoms
        kind: string
        visibleWhen: sick
validation:
  - field: beddingChanged
    type: boolean
  - field: bedding
    type: enum
    whenVisible: true
  - field: animals
    type: record-array
    optional: true
    element:
      - field: tag
        type: string
        nonEmpty: true
      - field: sick
        type: boolean
      - field: symptoms
        type: string
        whenVisible: true
        nonEmpty: true
measures:
  - key: bedding
    label: Bedding
    kind: const
  - key: animals
    label: Animals
    kind: computed
    flatten:
      field: animals
      columns:
        - {key: tag, label: Tag}
        - {key: symptoms, label: Symptoms}
  - key: summary
    kind: computed
    join:
      fields: [bedding]
`

const sampleJSON = `{
  "id": "weight-json",
  "details": {"title": "Weight", "description": "d", "estimatedDuration": 1, "license": "MIT"},
  "content": [{"name": "w", "kind": "string", "options": ["a", {"value": "b", "label": "B"}]}],
  "validation": [{"field": "w", "type": "numeric-string", "min": 0, "max": 45,
    "messages": {"parse": "Not a number"}}]
}`

func TestParseYAMLBuildsDynamicFieldsAndMeasures(t *testing.T) {
	t.Parallel()

	inst, err := Parse([]byte(sampleYAML), "cage.yaml")
	require.NoError(t, err)
	assert.Equal(t, "cage-check", inst.ID)
	assert.Equal(t, "FORM", inst.Kind)
	assert.Equal(t, "en", inst.Language)

	bedding, _, ok := model.Lookup(inst.Content, "bedding")
	require.True(t, ok)
	assert.True(t, bedding.IsDynamic())
	assert.Equal(t, []string{"beddingChanged"}, bedding.Deps)
	rule, ok := inst.Schema.Lookup("bedding")
	require.True(t, ok)
	assert.True(t, rule.WhenVisible)
	assert.True(t, rule.Required())

	answers := model.Answers{
		"beddingChanged": true,
		"bedding":        "aspen",
		"animals": []any{
			map[string]any{"tag": "A1", "sick": false, "symptoms": "stale"},
			map[string]any{"tag": "A2", "sick": true, "symptoms": "lethargy"},
		},
	}
	result, err := inst.Evaluate(answers)
	require.NoError(t, err)

	assert.Equal(t, []string{"beddingChanged", "bedding", "animals"}, result.Visible)
	assert.Equal(t, "aspen", result.Measures.Map()["bedding"])
	assert.Equal(t, "Tag: A1 Symptoms:  Tag: A2 Symptoms: lethargy ", result.Measures.Map()["animals"])
	assert.Equal(t, "Aspen shavings", result.Measures.Map()["summary"])
	require.Len(t, result.Measures.Warnings, 1)
	assert.Equal(t, "animals.0.symptoms", result.Measures.Warnings[0].Path)
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	inst, err := Parse([]byte(sampleJSON), "weight.json")
	require.NoError(t, err)
	assert.Equal(t, []model.Option{{Value: "a", Label: "a"}, {Value: "b", Label: "B"}}, inst.Content[0].Options)

	_, err = inst.Evaluate(model.Answers{"w": "abc"})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Not a number", verrs.Issues[0].Message)
}

func TestParseRejectsMalformedDefinitions(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing id":       "details: {title: x}\ncontent: [{name: a, kind: string}]",
		"unknown kind":     "id: x\ncontent: [{name: a, kind: blob}]",
		"bad rule":         "id: x\ncontent: [{name: a, kind: string, visibleWhen: 'a = 1'}]",
		"unknown options":  "id: x\ncontent: [{name: a, kind: string, optionsRef: nope}]",
		"unknown property": "id: x\nsurprise: true\ncontent: [{name: a, kind: string}]",
		"two projections":  "id: x\ncontent: [{name: a, kind: record-array}]\nmeasures: [{key: m, kind: computed, flatten: {field: a, columns: [{key: b}]}, table: {field: a, columns: [{key: b}]}}]",
	}
	for name, src := range cases {
		if _, err := Parse([]byte(src), name+".yaml"); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseRejectsForwardDependencyAsDefinitionError(t *testing.T) {
	t.Parallel()

	src := "id: x\ncontent:\n  - {name: a, kind: string, visibleWhen: b}\n  - {name: b, kind: boolean}\n"
	_, err := Parse([]byte(src), "x.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, visibility.ErrForwardDependency))
	assert.True(t, visibility.IsDefinitionError(err))
}

func TestLoadFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"forms/cage.yaml":   {Data: []byte(sampleYAML)},
		"forms/weight.json": {Data: []byte(sampleJSON)},
		"forms/README.md":   {Data: []byte("ignored")},
	}
	insts, err := LoadFS(fsys)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, "cage-check", insts[0].ID)
	assert.Equal(t, "weight-json", insts[1].ID)

	fsys["forms/copy.yml"] = &fstest.MapFile{Data: []byte(sampleYAML)}
	_, err = LoadFS(fsys)
	require.ErrorContains(t, err, "duplicate instrument")
}
