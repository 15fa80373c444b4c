package instruments_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-labforms/components/instruments"
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/lint"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/testsupport"
	"github.com/goliatone/go-labforms/pkg/validation"
)

func TestMouseWeightScenario(t *testing.T) {
	t.Parallel()

	inst := instruments.MouseWeight()

	result, err := inst.Evaluate(model.Answers{"mouseWeight": "25.4"})
	require.NoError(t, err)
	assert.Equal(t, 25.4, result.Answers["mouseWeight"])
	got, ok := result.Measures.Get("mouseWeight")
	require.True(t, ok)
	assert.Equal(t, 25.4, got)

	cases := map[string]string{
		"50":  "Weight has to be in range for 0 to 45 grams",
		"abc": "Not a number",
		"NaN": "Not a number",
		"Inf": "Not a number",
		"":    "Weight is required",
	}
	for raw, message := range cases {
		_, err := inst.Evaluate(model.Answers{"mouseWeight": raw})
		var verrs *validation.Errors
		require.ErrorAs(t, err, &verrs, raw)
		require.Len(t, verrs.Issues, 1, raw)
		assert.Equal(t, message, verrs.Issues[0].Message, raw)
		assert.Equal(t, "mouseWeight", verrs.Issues[0].Path, raw)
	}
}

func TestEndOfLifeSurgicalComplications(t *testing.T) {
	t.Parallel()

	res, err := instruments.EndOfLife().Resolve(model.Answers{"terminationReason": instruments.ReasonSurgicalComplications})
	require.NoError(t, err)
	assert.False(t, res.Has("terminationType"))

	cause, ok := res.Lookup("surgeryDeathCause")
	require.True(t, ok)
	assert.Equal(t, model.VariantSelect, cause.Field.Variant)
	assert.NotEmpty(t, cause.Field.Options)
}

func TestEndOfLifeOtherReasons(t *testing.T) {
	t.Parallel()

	inst := instruments.EndOfLife()
	for _, reason := range instruments.TerminationReasons {
		if reason == instruments.ReasonSurgicalComplications {
			continue
		}
		res, err := inst.Resolve(model.Answers{"terminationReason": reason})
		require.NoError(t, err, reason)
		assert.True(t, res.Has("terminationType"), reason)
		assert.False(t, res.Has("surgeryDeathCause"), reason)
	}

	res, err := inst.Resolve(model.Answers{})
	require.NoError(t, err)
	assert.Equal(t, []string{"terminationDate", "terminationReason", "notes"}, res.Names())
}

func TestEndOfLifeChainedDynamic(t *testing.T) {
	t.Parallel()

	inst := instruments.EndOfLife()
	answers := model.Answers{
		"terminationDate":   "2024-05-01",
		"terminationReason": "End of experiment",
		"terminationType":   "Perfusion",
		"perfusionFixative": "4% PFA",
	}
	result, err := inst.Evaluate(answers)
	require.NoError(t, err)
	assert.Equal(t, []string{"terminationDate", "terminationReason", "terminationType", "perfusionFixative", "notes"}, result.Visible)
	assert.Equal(t, "End of experiment: Perfusion", result.Measures.Map()["summary"])

	answers["terminationReason"] = instruments.ReasonSurgicalComplications
	answers["surgeryDeathCause"] = "Haemorrhage"
	// terminationType keeps its stale "Perfusion" answer
	result, err = inst.Evaluate(answers)
	require.NoError(t, err)
	assert.Equal(t, []string{"terminationDate", "terminationReason", "surgeryDeathCause", "notes"}, result.Visible)
	assert.NotContains(t, result.Answers, "terminationType")
	assert.NotContains(t, result.Answers, "perfusionFixative")
	assert.Equal(t, "Surgical complications: Haemorrhage", result.Measures.Map()["summary"])
}

func TestHistologyAntibodyMeasure(t *testing.T) {
	t.Parallel()

	result, err := instruments.Histology().Evaluate(model.Answers{
		"stainingMethod": "Immunofluorescence",
		"antibodiesUsedInfo": []any{
			map[string]any{"antibodyType": "Primary", "antibodyName": "GFAP-Ab", "antibodyConcentration": 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"Antibody Type: Primary Antibody Name: GFAP-Ab Antibody Concentration: 2 μg/mL ",
		result.Measures.Map()["antibodiesUsedInfo"],
	)
	assert.Empty(t, result.Measures.Warnings)
}

func TestHistologySecondaryNeedsHostSpecies(t *testing.T) {
	t.Parallel()

	_, err := instruments.Histology().Evaluate(model.Answers{
		"stainingMethod": "Immunofluorescence",
		"antibodiesUsedInfo": []any{
			map[string]any{"antibodyType": "Primary", "antibodyName": "NeuN"},
			map[string]any{"antibodyType": "Secondary", "antibodyName": "Alexa 488"},
		},
	})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs.Issues, 1)
	assert.Equal(t, "antibodiesUsedInfo.1.hostSpecies", verrs.Issues[0].Path)
}

func TestHistologyEmptyAntibodyList(t *testing.T) {
	t.Parallel()

	result, err := instruments.Histology().Evaluate(model.Answers{
		"stainingMethod":     "H&E",
		"antibodiesUsedInfo": []any{},
	})
	require.NoError(t, err)
	assert.Equal(t, "", result.Measures.Map()["antibodiesUsedInfo"])
}

func TestTissueExtractionReadsSiblingAnswers(t *testing.T) {
	t.Parallel()

	inst := instruments.TissueExtraction()
	res, err := inst.Resolve(model.Answers{
		"samples": []any{
			map[string]any{"bodyPartExtracted": "Brain"},
			map[string]any{"bodyPartExtracted": "Liver"},
		},
	})
	require.NoError(t, err)
	samples, ok := res.Lookup("samples")
	require.True(t, ok)
	require.Len(t, samples.Records, 2)
	assert.True(t, samples.Records[0].Has("extractionMotive"))
	assert.False(t, samples.Records[1].Has("extractionMotive"))

	report := lint.Check(inst)
	assert.True(t, report.Has(lint.CodeUndeclaredRead), report.String())
}

func TestMRIScanSharesScanOptions(t *testing.T) {
	t.Parallel()

	inst := instruments.MRIScan()
	scans, _, ok := model.Lookup(inst.Content, "scans")
	require.True(t, ok)
	scanName, _, ok := model.Lookup(scans.Fieldset, "scanName")
	require.True(t, ok)
	assert.Equal(t, instruments.ScanNameOptions, scanName.Options)

	result, err := inst.Evaluate(model.Answers{
		"fieldStrength": 9.4,
		"anaesthetised": true,
		"anaesthetic":   "Isoflurane",
		"scans": []any{
			map[string]any{"scanName": "t2", "durationMinutes": 12},
			map[string]any{"scanName": "other", "scanDescription": "MT ratio"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sequence: t2 Duration: 12 min Sequence: other Duration:  ", result.Measures.Map()["scans"])
	require.Len(t, result.Measures.Warnings, 1)
	assert.Equal(t, "scans.1.durationMinutes", result.Measures.Warnings[0].Path)
}

func TestDeclaredInstruments(t *testing.T) {
	t.Parallel()

	declared, err := instruments.Declared()
	require.NoError(t, err)
	ids := make([]string, 0, len(declared))
	for _, inst := range declared {
		ids = append(ids, inst.ID)
	}
	assert.Equal(t, []string{"housing-check", "perfusion"}, ids)

	var perfusion *instrument.Instrument
	for _, inst := range declared {
		if inst.ID == "perfusion" {
			perfusion = inst
		}
	}
	require.NotNil(t, perfusion)

	result, err := perfusion.Evaluate(model.Answers{
		"anaesthetic":    "Pentobarbital",
		"salineVolume":   20,
		"fixative":       "pfa4",
		"fixativeVolume": 50,
		"successful":     true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"anaesthetic", "salineVolume", "fixative", "fixativeVolume", "postFixHours", "successful"}, result.Visible)
	assert.Equal(t, "Pentobarbital / 4% PFA", result.Measures.Map()["summary"])

	_, err = perfusion.Evaluate(model.Answers{
		"anaesthetic":  "Pentobarbital",
		"salineVolume": 20,
		"fixative":     "glutaraldehyde",
		"successful":   false,
	})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, map[string][]string{
		"fixativeVolume": {"Required"},
		"failureNotes":   {"Describe why the perfusion failed"},
	}, verrs.Fields())
}

type recorder struct {
	ids  []string
	fail string
}

func (r *recorder) Register(inst *instrument.Instrument) error {
	if inst.ID == r.fail {
		return errors.New("rejected")
	}
	r.ids = append(r.ids, inst.ID)
	return nil
}

func TestRegister(t *testing.T) {
	t.Parallel()

	reg := &recorder{}
	require.NoError(t, instruments.Register(reg))
	assert.Equal(t, []string{
		"mouse-weight", "end-of-life", "histology", "tissue-extraction", "mri-scan",
		"housing-check", "perfusion",
	}, reg.ids)

	err := instruments.Register(&recorder{fail: "histology"})
	require.ErrorContains(t, err, "register histology")
	require.Error(t, instruments.Register(nil))
}

func TestBuiltinsPassChecks(t *testing.T) {
	t.Parallel()

	all, err := instruments.All()
	require.NoError(t, err)
	for _, inst := range all {
		require.NoError(t, inst.Check(), inst.ID)
		report := lint.Check(inst)
		assert.False(t, report.HasErrors(), "%s: %s", inst.ID, report.String())
	}
}

func TestPerfusionResultGolden(t *testing.T) {
	t.Parallel()

	declared, err := instruments.Declared()
	require.NoError(t, err)

	var perfusion *instrument.Instrument
	for _, inst := range declared {
		if inst.ID == "perfusion" {
			perfusion = inst
		}
	}
	require.NotNil(t, perfusion)

	result, err := perfusion.Evaluate(testsupport.MustLoadAnswers(t, "testdata/perfusion.answers.json"))
	require.NoError(t, err)
	testsupport.AssertGoldenJSON(t, "testdata/perfusion.result.golden.json", result)
}
