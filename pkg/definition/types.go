package definition

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
)

type documentFile struct {
	ID            string                `json:"id" yaml:"id"`
	Kind          string                `json:"kind" yaml:"kind"`
	Version       string                `json:"version" yaml:"version"`
	Language      string                `json:"language" yaml:"language"`
	Details       model.Details         `json:"details" yaml:"details"`
	ClientDetails *model.ClientDetails  `json:"clientDetails" yaml:"clientDetails"`
	Options       map[string]optionList `json:"options" yaml:"options"`
	Content       []fieldFile           `json:"content" yaml:"content"`
	Validation    []ruleFile            `json:"validation" yaml:"validation"`
	Measures      []measureFile         `json:"measures" yaml:"measures"`
}

type fieldFile struct {
	Name        string      `json:"name" yaml:"name"`
	Kind        string      `json:"kind" yaml:"kind"`
	Variant     string      `json:"variant" yaml:"variant"`
	Label       string      `json:"label" yaml:"label"`
	Description string      `json:"description" yaml:"description"`
	Options     optionList  `json:"options" yaml:"options"`
	OptionsRef  string      `json:"optionsRef" yaml:"optionsRef"`
	Min         *float64    `json:"min" yaml:"min"`
	Max         *float64    `json:"max" yaml:"max"`
	Fieldset    []fieldFile `json:"fieldset" yaml:"fieldset"`
	VisibleWhen string      `json:"visibleWhen" yaml:"visibleWhen"`
	Deps        []string    `json:"deps" yaml:"deps"`
}

type ruleFile struct {
	Field       string              `json:"field" yaml:"field"`
	Type        string              `json:"type" yaml:"type"`
	Optional    bool                `json:"optional" yaml:"optional"`
	WhenVisible bool                `json:"whenVisible" yaml:"whenVisible"`
	NonEmpty    bool                `json:"nonEmpty" yaml:"nonEmpty"`
	Min         *float64            `json:"min" yaml:"min"`
	Max         *float64            `json:"max" yaml:"max"`
	Enum        []string            `json:"enum" yaml:"enum"`
	Element     []ruleFile          `json:"element" yaml:"element"`
	Messages    validation.Messages `json:"messages" yaml:"messages"`
}

type measureFile struct {
	Key     string       `json:"key" yaml:"key"`
	Label   string       `json:"label" yaml:"label"`
	Kind    string       `json:"kind" yaml:"kind"`
	Ref     string       `json:"ref" yaml:"ref"`
	Flatten *recordsFile `json:"flatten" yaml:"flatten"`
	Table   *recordsFile `json:"table" yaml:"table"`
	Join    *joinFile    `json:"join" yaml:"join"`
}

type recordsFile struct {
	Field   string       `json:"field" yaml:"field"`
	Columns []columnFile `json:"columns" yaml:"columns"`
}

type columnFile struct {
	Key    string `json:"key" yaml:"key"`
	Label  string `json:"label" yaml:"label"`
	Suffix string `json:"suffix" yaml:"suffix"`
}

// joinFile concatenates several fields, as option labels where the field
// declares options.
type joinFile struct {
	Fields    []string `json:"fields" yaml:"fields"`
	Separator string   `json:"separator" yaml:"separator"`
}

// optionList accepts either bare values or value/label pairs.
type optionList []model.Option

func (o *optionList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("options must be a list (line %d)", node.Line)
	}
	out := make(optionList, 0, len(node.Content))
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, model.Option{Value: item.Value, Label: item.Value})
		case yaml.MappingNode:
			var opt model.Option
			if err := item.Decode(&opt); err != nil {
				return err
			}
			if opt.Label == "" {
				opt.Label = opt.Value
			}
			out = append(out, opt)
		default:
			return fmt.Errorf("unsupported option entry (line %d)", item.Line)
		}
	}
	*o = out
	return nil
}

func (o *optionList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("options must be a list: %w", err)
	}
	out := make(optionList, 0, len(raw))
	for _, item := range raw {
		var value string
		if err := json.Unmarshal(item, &value); err == nil {
			out = append(out, model.Option{Value: value, Label: value})
			continue
		}
		var opt model.Option
		if err := json.Unmarshal(item, &opt); err != nil {
			return fmt.Errorf("unsupported option entry %s", string(item))
		}
		if opt.Label == "" {
			opt.Label = opt.Value
		}
		out = append(out, opt)
	}
	*o = out
	return nil
}
