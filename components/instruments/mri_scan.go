package instruments

import (
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

// ScanNameOptions is the shared sequence table offered by every scan entry.
// It is read-only.
var ScanNameOptions = model.Opts(
	"t1", "T1-weighted",
	"t2", "T2-weighted",
	"flair", "FLAIR",
	"dwi", "Diffusion-weighted",
	"dti", "Diffusion tensor",
	"fmri", "Functional (BOLD)",
	"mra", "Angiography",
	"other", "Other",
)

// MRIScan records an imaging session and the sequences acquired in it.
func MRIScan() *instrument.Instrument {
	return &instrument.Instrument{
		Kind:     instrument.KindForm,
		ID:       "mri-scan",
		Version:  "1.0",
		Language: "en",
		Details: model.Details{
			Title:             "MRI Scan",
			Description:       "Imaging session parameters and acquired sequences.",
			Instructions:      []string{"List every sequence acquired during the session."},
			EstimatedDuration: 6,
			License:           "Apache-2.0",
			Tags:              []string{"imaging", "mri"},
		},
		Content: []model.Field{
			{
				Name:    "fieldStrength",
				Kind:    model.FieldKindNumber,
				Variant: model.VariantSlider,
				Label:   "Field strength (T)",
				Min:     model.Float(1),
				Max:     model.Float(21),
			},
			{
				Name:    "anaesthetised",
				Kind:    model.FieldKindBoolean,
				Variant: model.VariantCheckbox,
				Label:   "Animal anaesthetised",
			},
			visibility.MustConditional("anaesthetic", "anaesthetised == true", model.Field{
				Kind:    model.FieldKindString,
				Variant: model.VariantSelect,
				Label:   "Anaesthetic",
				Options: model.SameOpts("Isoflurane", "Medetomidine", "Ketamine/Xylazine"),
			}),
			{
				Name:  "scans",
				Kind:  model.FieldKindRecordArray,
				Label: "Scans",
				Fieldset: []model.Field{
					{
						Name:    "scanName",
						Kind:    model.FieldKindString,
						Variant: model.VariantSelect,
						Label:   "Sequence",
						Options: ScanNameOptions,
					},
					visibility.MustConditional("scanDescription", `scanName == "other"`, model.Field{
						Kind:  model.FieldKindString,
						Label: "Describe the sequence",
					}),
					{
						Name:  "durationMinutes",
						Kind:  model.FieldKindNumber,
						Label: "Duration (min)",
						Min:   model.Float(0),
					},
				},
			},
		},
		Schema: validation.Schema{
			{Field: "fieldStrength", Type: validation.TypeNumber, Min: model.Float(1), Max: model.Float(21)},
			{Field: "anaesthetised", Type: validation.TypeBoolean},
			{Field: "anaesthetic", Type: validation.TypeEnum, WhenVisible: true},
			{
				Field:    "scans",
				Type:     validation.TypeRecordArray,
				NonEmpty: true,
				Element: validation.Schema{
					{Field: "scanName", Type: validation.TypeEnum},
					{Field: "scanDescription", Type: validation.TypeString, WhenVisible: true, NonEmpty: true},
					{Field: "durationMinutes", Type: validation.TypeNumber, Optional: true, Min: model.Float(0)},
				},
			},
		},
		Measures: []measures.Measure{
			measures.Const("fieldStrength", "Field strength", "fieldStrength"),
			measures.Const("anaesthetic", "Anaesthetic", "anaesthetic"),
			measures.Computed("scans", "Scans", func(in *measures.Input) any {
				return in.Flatten("scans",
					measures.Col("scanName", "Sequence"),
					measures.Col("durationMinutes", "Duration").WithSuffix(" min"),
				)
			}),
		},
	}
}
