package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
)

// ask prompts for one field. present is false when the user left an
// optional answer blank.
func (f *Filler) ask(ctx context.Context, path string, field model.Field, rule *validation.Rule, current any) (any, bool, error) {
	switch field.Kind {
	case model.FieldKindBoolean:
		def, _ := current.(bool)
		resp, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: displayLabel(field),
			Default: def,
			Help:    field.Description,
		})
		return resp, err == nil, err
	case model.FieldKindNumber:
		return f.askNumber(ctx, path, field, current)
	case model.FieldKindSet:
		return f.askSet(ctx, field, current)
	default:
		if len(field.Options) > 0 {
			return f.askOption(ctx, field, rule, current)
		}
		return f.askText(ctx, field, current)
	}
}

func (f *Filler) askText(ctx context.Context, field model.Field, current any) (any, bool, error) {
	def := measures.FormatValue(current)
	var (
		resp string
		err  error
	)
	if field.Variant == model.VariantTextArea {
		resp, err = f.driver.TextArea(ctx, TextAreaConfig{
			Message: displayLabel(field),
			Default: def,
			Help:    field.Description,
		})
	} else {
		resp, err = f.driver.Input(ctx, InputConfig{
			Message: displayLabel(field),
			Default: def,
			Help:    displayHelp(field),
		})
	}
	if err != nil {
		return nil, false, err
	}
	resp = strings.TrimSpace(resp)
	return resp, resp != "", nil
}

func (f *Filler) askNumber(ctx context.Context, path string, field model.Field, current any) (any, bool, error) {
	def := measures.FormatValue(current)
	for {
		resp, err := f.driver.Input(ctx, InputConfig{
			Message: displayLabel(field),
			Default: def,
			Help:    displayHelp(field),
		})
		if err != nil {
			return nil, false, err
		}
		resp = strings.TrimSpace(resp)
		if resp == "" {
			return nil, false, nil
		}
		n, ok := model.ParseFloat(resp)
		if !ok {
			if err := f.driver.Info(ctx, fmt.Sprintf("%s: Not a number", path)); err != nil {
				return nil, false, err
			}
			continue
		}
		return n, true, nil
	}
}

func (f *Filler) askOption(ctx context.Context, field model.Field, rule *validation.Rule, current any) (any, bool, error) {
	labels := make([]string, 0, len(field.Options)+1)
	for _, opt := range field.Options {
		labels = append(labels, optionLabel(opt))
	}
	optional := rule == nil || rule.Optional
	if optional {
		labels = append(labels, noneOption)
	}

	def := -1
	if s, ok := current.(string); ok {
		for i, opt := range field.Options {
			if opt.Value == s {
				def = i
			}
		}
	}

	for {
		idx, err := f.driver.Select(ctx, SelectConfig{
			Message:      displayLabel(field),
			Options:      labels,
			DefaultIndex: def,
			Help:         field.Description,
		})
		if err != nil {
			return nil, false, err
		}
		switch {
		case idx >= 0 && idx < len(field.Options):
			return field.Options[idx].Value, true, nil
		case optional && idx == len(field.Options):
			return nil, false, nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("%s: invalid selection", field.Name)); err != nil {
			return nil, false, err
		}
	}
}

func (f *Filler) askSet(ctx context.Context, field model.Field, current any) (any, bool, error) {
	labels := make([]string, 0, len(field.Options))
	for _, opt := range field.Options {
		labels = append(labels, optionLabel(opt))
	}
	chosen := model.Answers{"v": current}.Strings("v")
	var defaults []int
	for i, opt := range field.Options {
		for _, c := range chosen {
			if c == opt.Value {
				defaults = append(defaults, i)
			}
		}
	}

	indices, err := f.driver.MultiSelect(ctx, SelectConfig{
		Message:  displayLabel(field),
		Options:  labels,
		Defaults: defaults,
		Help:     field.Description,
	})
	if err != nil {
		return nil, false, err
	}
	values := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(field.Options) {
			values = append(values, field.Options[idx].Value)
		}
	}
	return values, true, nil
}

func displayLabel(field model.Field) string {
	if strings.TrimSpace(field.Label) != "" {
		return field.Label
	}
	return field.Name
}

func displayHelp(field model.Field) string {
	help := field.Description
	var bounds string
	switch {
	case field.Min != nil && field.Max != nil:
		bounds = fmt.Sprintf("%s to %s", measures.FormatValue(*field.Min), measures.FormatValue(*field.Max))
	case field.Min != nil:
		bounds = "at least " + measures.FormatValue(*field.Min)
	case field.Max != nil:
		bounds = "at most " + measures.FormatValue(*field.Max)
	}
	if bounds == "" {
		return help
	}
	if help == "" {
		return bounds
	}
	return help + " (" + bounds + ")"
}

func optionLabel(opt model.Option) string {
	if strings.TrimSpace(opt.Label) != "" {
		return opt.Label
	}
	return opt.Value
}
