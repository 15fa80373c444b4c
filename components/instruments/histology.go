package instruments

import (
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

// AntibodyColumns are the sub-fields the antibody measure reports, in
// order.
var AntibodyColumns = []measures.Column{
	measures.Col("antibodyType", "Antibody Type"),
	measures.Col("antibodyName", "Antibody Name"),
	measures.Col("antibodyConcentration", "Antibody Concentration").WithSuffix(" μg/mL"),
}

// Histology records a staining session and the antibodies it used.
func Histology() *instrument.Instrument {
	return &instrument.Instrument{
		Kind:     instrument.KindForm,
		ID:       "histology",
		Version:  "2.0",
		Language: "en",
		Details: model.Details{
			Title:             "Histology",
			Description:       "Tissue staining protocol and antibodies used.",
			Instructions:      []string{"Add one entry per antibody applied to the section."},
			EstimatedDuration: 5,
			License:           "Apache-2.0",
			Tags:              []string{"histology", "immunostaining"},
		},
		Content: []model.Field{
			{
				Name:    "stainingMethod",
				Kind:    model.FieldKindString,
				Variant: model.VariantSelect,
				Label:   "Staining method",
				Options: model.SameOpts("Immunohistochemistry", "Immunofluorescence", "H&E", "Nissl"),
			},
			{
				Name:    "sectionThickness",
				Kind:    model.FieldKindNumber,
				Variant: model.VariantInput,
				Label:   "Section thickness (μm)",
				Min:     model.Float(1),
				Max:     model.Float(200),
			},
			{
				Name:  "antibodiesUsedInfo",
				Kind:  model.FieldKindRecordArray,
				Label: "Antibodies used",
				Fieldset: []model.Field{
					{
						Name:    "antibodyType",
						Kind:    model.FieldKindString,
						Variant: model.VariantRadio,
						Label:   "Antibody type",
						Options: model.SameOpts("Primary", "Secondary"),
					},
					{
						Name:  "antibodyName",
						Kind:  model.FieldKindString,
						Label: "Antibody name",
					},
					{
						Name:  "antibodyConcentration",
						Kind:  model.FieldKindNumber,
						Label: "Concentration (μg/mL)",
						Min:   model.Float(0),
					},
					visibility.MustConditional("hostSpecies", `antibodyType == "Secondary"`, model.Field{
						Kind:    model.FieldKindString,
						Variant: model.VariantSelect,
						Label:   "Host species",
						Options: model.SameOpts("Goat", "Donkey", "Rabbit", "Mouse"),
					}),
				},
			},
		},
		Schema: validation.Schema{
			{Field: "stainingMethod", Type: validation.TypeEnum},
			{Field: "sectionThickness", Type: validation.TypeNumber, Optional: true, Min: model.Float(1), Max: model.Float(200)},
			{
				Field:    "antibodiesUsedInfo",
				Type:     validation.TypeRecordArray,
				Optional: true,
				Element: validation.Schema{
					{Field: "antibodyType", Type: validation.TypeEnum},
					{Field: "antibodyName", Type: validation.TypeString, NonEmpty: true},
					{Field: "antibodyConcentration", Type: validation.TypeNumber, Optional: true, Min: model.Float(0)},
					{Field: "hostSpecies", Type: validation.TypeEnum, WhenVisible: true},
				},
			},
		},
		Measures: []measures.Measure{
			measures.Const("stainingMethod", "Staining method", "stainingMethod"),
			measures.Computed("antibodiesUsedInfo", "Antibodies used", func(in *measures.Input) any {
				return in.Flatten("antibodiesUsedInfo", AntibodyColumns...)
			}),
		},
	}
}
