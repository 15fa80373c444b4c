package instruments

import (
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
)

// MouseWeight records a free-text body weight that is parsed into a bounded
// number on submission.
func MouseWeight() *instrument.Instrument {
	return &instrument.Instrument{
		Kind:     instrument.KindForm,
		ID:       "mouse-weight",
		Version:  "1.0",
		Language: "en",
		Details: model.Details{
			Title:             "Mouse Weight",
			Description:       "Body weight of a single animal, in grams.",
			Instructions:      []string{"Weigh the animal on a calibrated scale and enter the value in grams."},
			EstimatedDuration: 1,
			License:           "Apache-2.0",
			Tags:              []string{"weight", "welfare"},
		},
		Content: []model.Field{
			{
				Name:    "mouseWeight",
				Kind:    model.FieldKindString,
				Variant: model.VariantInput,
				Label:   "Mouse weight (g)",
			},
		},
		Schema: validation.Schema{
			{
				Field: "mouseWeight",
				Type:  validation.TypeNumericString,
				Min:   model.Float(0),
				Max:   model.Float(45),
				Messages: validation.Messages{
					Required: "Weight is required",
					Parse:    "Not a number",
					Range:    "Weight has to be in range for 0 to 45 grams",
				},
			},
		},
		Measures: []measures.Measure{
			measures.Const("mouseWeight", "Mouse weight (g)", "mouseWeight"),
		},
	}
}
