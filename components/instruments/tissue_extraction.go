package instruments

import (
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
)

var bodyParts = model.SameOpts("Brain", "Spinal cord", "Liver", "Kidney", "Heart", "Spleen", "Other")

var extractionMotives = map[string][]model.Option{
	"Brain":       model.SameOpts("Histology", "Electrophysiology", "RNA sequencing", "Western blot"),
	"Spinal cord": model.SameOpts("Histology", "RNA sequencing"),
}

// TissueExtraction records the organs taken from an animal. The motive
// question inside each sample depends on bodyPartExtracted but does not
// declare it; the resolver hands nested renders the element's answers so
// the form keeps working.
func TissueExtraction() *instrument.Instrument {
	return &instrument.Instrument{
		Kind:     instrument.KindForm,
		ID:       "tissue-extraction",
		Version:  "1.0",
		Language: "en",
		Details: model.Details{
			Title:             "Tissue Extraction",
			Description:       "Organs and tissue samples collected post mortem.",
			EstimatedDuration: 4,
			License:           "Apache-2.0",
			Tags:              []string{"tissue", "sampling"},
		},
		Content: []model.Field{
			{
				Name:    "extractionDate",
				Kind:    model.FieldKindDate,
				Variant: model.VariantDateTime,
				Label:   "Extraction date",
			},
			{
				Name:    "storage",
				Kind:    model.FieldKindSet,
				Variant: model.VariantListbox,
				Label:   "Storage",
				Options: model.SameOpts("-80 °C", "Liquid nitrogen", "4% PFA", "RNAlater"),
			},
			{
				Name:  "samples",
				Kind:  model.FieldKindRecordArray,
				Label: "Samples",
				Fieldset: []model.Field{
					{
						Name:    "bodyPartExtracted",
						Kind:    model.FieldKindString,
						Variant: model.VariantSelect,
						Label:   "Body part",
						Options: bodyParts,
					},
					{
						Name: "extractionMotive",
						Kind: model.FieldKindDynamic,
						Render: func(answers model.Answers) *model.Field {
							options, ok := extractionMotives[answers.String("bodyPartExtracted")]
							if !ok {
								return nil
							}
							return &model.Field{
								Kind:    model.FieldKindString,
								Variant: model.VariantSelect,
								Label:   "Motive",
								Options: options,
							}
						},
					},
					{
						Name:  "weightMg",
						Kind:  model.FieldKindNumber,
						Label: "Weight (mg)",
						Min:   model.Float(0),
					},
				},
			},
		},
		Schema: validation.Schema{
			{Field: "extractionDate", Type: validation.TypeDate},
			{Field: "storage", Type: validation.TypeSet, NonEmpty: true},
			{
				Field:    "samples",
				Type:     validation.TypeRecordArray,
				NonEmpty: true,
				Element: validation.Schema{
					{Field: "bodyPartExtracted", Type: validation.TypeEnum},
					{Field: "extractionMotive", Type: validation.TypeEnum, Optional: true},
					{Field: "weightMg", Type: validation.TypeNumber, Optional: true, Min: model.Float(0)},
				},
			},
		},
		Measures: []measures.Measure{
			measures.Const("extractionDate", "Extraction date", "extractionDate"),
			measures.Const("storage", "Storage", "storage"),
			measures.Computed("samples", "Samples", func(in *measures.Input) any {
				return in.Table("samples",
					measures.Col("bodyPartExtracted", "Body part"),
					measures.Col("extractionMotive", "Motive"),
					measures.Col("weightMg", "Weight").WithSuffix(" mg"),
				)
			}),
		},
	}
}
