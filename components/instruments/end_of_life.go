package instruments

import (
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
)

// ReasonSurgicalComplications is the termination reason that asks for a
// cause of death instead of a termination method.
const ReasonSurgicalComplications = "Surgical complications"

// TerminationReasons lists the end-of-life reasons in display order.
var TerminationReasons = []string{
	"End of experiment",
	"Humane endpoint reached",
	ReasonSurgicalComplications,
	"Found dead",
	"Breeding surplus",
	"Other",
}

var terminationTypes = model.SameOpts(
	"Perfusion",
	"Cervical dislocation",
	"CO2 inhalation",
	"Decapitation under anaesthesia",
	"Anaesthetic overdose",
)

var surgeryDeathCauses = model.SameOpts(
	"Haemorrhage",
	"Anaesthetic complications",
	"Respiratory arrest",
	"Post-operative infection",
	"Unknown",
)

// EndOfLife records why and how an animal left the study.
func EndOfLife() *instrument.Instrument {
	return &instrument.Instrument{
		Kind:     instrument.KindForm,
		ID:       "end-of-life",
		Version:  "1.1",
		Language: "en",
		Details: model.Details{
			Title:             "End of Life",
			Description:       "Termination record for a single animal.",
			Instructions:      []string{"Select the termination reason first; the remaining questions depend on it."},
			EstimatedDuration: 3,
			License:           "Apache-2.0",
			Tags:              []string{"termination", "welfare"},
		},
		ClientDetails: &model.ClientDetails{
			Title: "Termination",
		},
		Content: []model.Field{
			{
				Name:    "terminationDate",
				Kind:    model.FieldKindDate,
				Variant: model.VariantDateTime,
				Label:   "Date of termination",
			},
			{
				Name:    "terminationReason",
				Kind:    model.FieldKindString,
				Variant: model.VariantSelect,
				Label:   "Reason for termination",
				Options: model.SameOpts(TerminationReasons...),
			},
			{
				Name: "terminationType",
				Kind: model.FieldKindDynamic,
				Deps: []string{"terminationReason"},
				Render: func(answers model.Answers) *model.Field {
					if !answers.Has("terminationReason") || answers.Is("terminationReason", ReasonSurgicalComplications) {
						return nil
					}
					return &model.Field{
						Kind:    model.FieldKindString,
						Variant: model.VariantSelect,
						Label:   "Termination method",
						Options: terminationTypes,
					}
				},
			},
			{
				Name: "surgeryDeathCause",
				Kind: model.FieldKindDynamic,
				Deps: []string{"terminationReason"},
				Render: func(answers model.Answers) *model.Field {
					if !answers.Is("terminationReason", ReasonSurgicalComplications) {
						return nil
					}
					return &model.Field{
						Kind:    model.FieldKindString,
						Variant: model.VariantSelect,
						Label:   "Cause of death during surgery",
						Options: surgeryDeathCauses,
					}
				},
			},
			{
				Name: "perfusionFixative",
				Kind: model.FieldKindDynamic,
				Deps: []string{"terminationType"},
				Render: func(answers model.Answers) *model.Field {
					if !answers.Is("terminationType", "Perfusion") {
						return nil
					}
					return &model.Field{
						Kind:    model.FieldKindString,
						Variant: model.VariantSelect,
						Label:   "Fixative",
						Options: model.SameOpts("4% PFA", "10% formalin", "Saline only"),
					}
				},
			},
			{
				Name:    "notes",
				Kind:    model.FieldKindString,
				Variant: model.VariantTextArea,
				Label:   "Notes",
			},
		},
		Schema: validation.Schema{
			{Field: "terminationDate", Type: validation.TypeDate},
			{Field: "terminationReason", Type: validation.TypeEnum},
			{Field: "terminationType", Type: validation.TypeEnum, WhenVisible: true},
			{Field: "surgeryDeathCause", Type: validation.TypeEnum, WhenVisible: true},
			{Field: "perfusionFixative", Type: validation.TypeEnum, WhenVisible: true},
			{Field: "notes", Type: validation.TypeString, Optional: true},
		},
		Measures: []measures.Measure{
			measures.Const("terminationDate", "Date", "terminationDate"),
			measures.Const("terminationReason", "Reason", "terminationReason"),
			measures.Const("terminationType", "Method", "terminationType"),
			measures.Const("surgeryDeathCause", "Cause of death", "surgeryDeathCause"),
			measures.Computed("summary", "Summary", func(in *measures.Input) any {
				answers := in.Answers()
				if cause := answers.String("surgeryDeathCause"); cause != "" {
					return answers.String("terminationReason") + ": " + cause
				}
				return answers.String("terminationReason") + ": " + answers.String("terminationType")
			}),
		},
	}
}
