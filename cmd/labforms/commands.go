package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/goliatone/go-labforms"
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/lint"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/openapi"
	"github.com/goliatone/go-labforms/pkg/prompt"
	"github.com/goliatone/go-labforms/pkg/report"
	"github.com/goliatone/go-labforms/pkg/validation"
)

func runList(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "list")
	output := outputFlag(fs, e)
	if err := fs.Parse(args); err != nil {
		return err
	}

	insts := e.reg.Instruments()
	if *output == "json" {
		type entry struct {
			ID      string   `json:"id"`
			Title   string   `json:"title"`
			Version string   `json:"version,omitempty"`
			Tags    []string `json:"tags,omitempty"`
		}
		out := make([]entry, 0, len(insts))
		for _, inst := range insts {
			out = append(out, entry{ID: inst.ID, Title: inst.Title(), Version: inst.Version, Tags: inst.Details.Tags})
		}
		return writeJSON(e.stdout, out)
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, inst := range insts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", inst.ID, inst.Title(), inst.Version)
	}
	return tw.Flush()
}

func runShow(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "show")
	id := fs.String("id", "", "instrument id")
	output := outputFlag(fs, e)
	if err := fs.Parse(args); err != nil {
		return err
	}
	inst, err := lookup(e, *id)
	if err != nil {
		return err
	}

	if *output == "json" {
		return writeJSON(e.stdout, describe(inst))
	}

	w := e.stdout
	fmt.Fprintf(w, "%s (%s)\n", inst.Title(), inst.ID)
	if inst.Details.Description != "" {
		fmt.Fprintln(w, inst.Details.Description)
	}
	for _, line := range inst.Instructions() {
		fmt.Fprintf(w, "  > %s\n", line)
	}
	if d := inst.EstimatedDuration(); d > 0 {
		fmt.Fprintf(w, "Estimated duration: %d min\n", d)
	}

	fmt.Fprintln(w, "\nFields:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeFields(tw, inst.Content, "  ")
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(inst.Measures) > 0 {
		fmt.Fprintln(w, "\nMeasures:")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, m := range inst.Measures {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Key, m.Kind, m.Label)
		}
		return tw.Flush()
	}
	return nil
}

func writeFields(w io.Writer, fields []model.Field, indent string) {
	for _, field := range fields {
		kind := string(field.Kind)
		if field.Variant != "" {
			kind += "/" + field.Variant
		}
		extra := field.Label
		if field.IsDynamic() {
			extra = "deps: " + strings.Join(field.Deps, ", ")
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\n", indent, field.Name, kind, extra)
		if len(field.Fieldset) > 0 {
			writeFields(w, field.Fieldset, indent+"  ")
		}
	}
}

type fieldView struct {
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Variant  string      `json:"variant,omitempty"`
	Label    string      `json:"label,omitempty"`
	Deps     []string    `json:"deps,omitempty"`
	Options  []string    `json:"options,omitempty"`
	Fieldset []fieldView `json:"fieldset,omitempty"`
}

type instrumentView struct {
	ID       string      `json:"id"`
	Version  string      `json:"version,omitempty"`
	Title    string      `json:"title"`
	Details  any         `json:"details"`
	Fields   []fieldView `json:"fields"`
	Measures []string    `json:"measures"`
}

func describe(inst *instrument.Instrument) instrumentView {
	view := instrumentView{
		ID:      inst.ID,
		Version: inst.Version,
		Title:   inst.Title(),
		Details: inst.Details,
		Fields:  fieldViews(inst.Content),
	}
	for _, m := range inst.Measures {
		view.Measures = append(view.Measures, m.Key)
	}
	return view
}

func fieldViews(fields []model.Field) []fieldView {
	out := make([]fieldView, 0, len(fields))
	for _, field := range fields {
		out = append(out, fieldView{
			Name:     field.Name,
			Kind:     string(field.Kind),
			Variant:  field.Variant,
			Label:    field.Label,
			Deps:     field.Deps,
			Options:  field.OptionValues(),
			Fieldset: fieldViews(field.Fieldset),
		})
	}
	return out
}

func runResolve(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "resolve")
	id := fs.String("id", "", "instrument id")
	answersPath := fs.String("answers", "", "answers JSON file, - for stdin")
	output := outputFlag(fs, e)
	if err := fs.Parse(args); err != nil {
		return err
	}
	inst, err := lookup(e, *id)
	if err != nil {
		return err
	}
	answers, err := readAnswers(e, *answersPath)
	if err != nil {
		return err
	}

	res, err := inst.Resolve(answers)
	if err != nil {
		return err
	}
	paths := res.Paths()
	if *output == "json" {
		return writeJSON(e.stdout, map[string]any{"instrument": inst.ID, "visible": paths})
	}
	for _, path := range paths {
		fmt.Fprintln(e.stdout, path)
	}
	return nil
}

func runValidate(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "validate")
	id := fs.String("id", "", "instrument id")
	answersPath := fs.String("answers", "", "answers JSON file, - for stdin")
	remotePath := fs.String("remote-errors", "", "JSON object of errors returned by the receiving API, folded into the report")
	output := outputFlag(fs, e)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *remotePath != "" {
		return validateWithRemote(e, *id, *answersPath, *remotePath, *output)
	}
	result, err := evaluate(e, *id, *answersPath)
	if err != nil {
		return reportRejection(e, *output, err)
	}

	if *output == "json" {
		return writeJSON(e.stdout, result.Answers)
	}
	fmt.Fprintf(e.stdout, "ok: %d visible fields\n", len(result.Visible))
	return nil
}

// validateWithRemote maps errors a receiving API returned onto the visible
// paths and merges them with the local gate's issues.
func validateWithRemote(e *env, id, answersPath, remotePath, output string) error {
	inst, err := lookup(e, id)
	if err != nil {
		return err
	}
	answers, err := readAnswers(e, answersPath)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(remotePath)
	if err != nil {
		return fmt.Errorf("read remote errors: %w", err)
	}
	var payload map[string][]string
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode remote errors %s: %w", remotePath, err)
	}

	s, err := labforms.NewSession(inst, answers)
	if err != nil {
		return err
	}
	mapping := s.MapErrors(payload)
	if _, err := s.Submit(); err != nil {
		var verrs *validation.Errors
		if !errors.As(err, &verrs) {
			return err
		}
		mapping = mapping.Merge(verrs)
	}
	if len(mapping.Fields) == 0 && len(mapping.Form) == 0 {
		fmt.Fprintln(e.stdout, "ok")
		return nil
	}

	if output == "json" {
		if err := writeJSON(e.stdout, mapping); err != nil {
			return err
		}
		return errFailed
	}
	paths := make([]string, 0, len(mapping.Fields))
	for path := range mapping.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		for _, msg := range mapping.Fields[path] {
			fmt.Fprintf(e.stdout, "%s: %s\n", path, msg)
		}
	}
	for _, msg := range mapping.Form {
		fmt.Fprintf(e.stdout, "form: %s\n", msg)
	}
	return errFailed
}

func runMeasures(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "measures")
	id := fs.String("id", "", "instrument id")
	answersPath := fs.String("answers", "", "answers JSON file, - for stdin")
	output := outputFlag(fs, e)
	if err := fs.Parse(args); err != nil {
		return err
	}
	result, err := evaluate(e, *id, *answersPath)
	if err != nil {
		return reportRejection(e, *output, err)
	}
	return writeMeasures(e.stdout, *output, result.Measures)
}

func writeMeasures(w io.Writer, output string, proj measures.Projection) error {
	if output == "json" {
		return writeJSON(w, proj)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range proj.Values {
		label := v.Label
		if label == "" {
			label = v.Key
		}
		fmt.Fprintf(tw, "%s\t%s\n", label, measures.FormatValue(v.Value))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warning := range proj.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func runReport(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "report")
	id := fs.String("id", "", "instrument id")
	answersPath := fs.String("answers", "", "answers JSON file, - for stdin")
	defaultFormat := e.cfg.Output
	if defaultFormat == "json" {
		defaultFormat = string(report.FormatText)
	}
	format := fs.String("format", defaultFormat, "text or html")
	themeName := fs.String("theme", e.cfg.Theme, "report theme for html output")
	variant := fs.String("variant", e.cfg.ThemeVariant, "theme variant")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := report.ParseFormat(*format)
	if err != nil {
		return err
	}
	var opts []report.Option
	if *themeName != "" || *variant != "" {
		opts = append(opts, report.WithThemeSelector(report.Themes(), *themeName, *variant))
	}
	renderer, err := report.New(opts...)
	if err != nil {
		return err
	}

	inst, err := lookup(e, *id)
	if err != nil {
		return err
	}
	answers, err := readAnswers(e, *answersPath)
	if err != nil {
		return err
	}
	result, err := labforms.Evaluate(inst, answers)
	if err != nil {
		return reportRejection(e, "text", err)
	}
	return renderer.Write(e.stdout, f, inst, result)
}

func runOpenAPI(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "openapi")
	title := fs.String("title", "Lab instruments", "document title")
	version := fs.String("version", "1.0.0", "document version")
	server := fs.String("server", "", "server URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := openapi.Build(ctx, e.reg.Instruments(),
		openapi.WithTitle(*title),
		openapi.WithVersion(*version),
		openapi.WithServer(*server),
	)
	if err != nil {
		return err
	}
	return writeJSON(e.stdout, doc)
}

func runLint(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "lint")
	id := fs.String("id", "", "lint a single instrument")
	output := outputFlag(fs, e)
	if err := fs.Parse(args); err != nil {
		return err
	}

	insts := e.reg.Instruments()
	if *id != "" {
		inst, err := lookup(e, *id)
		if err != nil {
			return err
		}
		insts = []*instrument.Instrument{inst}
	}

	reports := lint.CheckAll(insts)
	failed := false
	for _, r := range reports {
		failed = failed || r.HasErrors()
	}
	if *output == "json" {
		if err := writeJSON(e.stdout, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			fmt.Fprint(e.stdout, r.String())
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

func runFill(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "fill")
	id := fs.String("id", "", "instrument id")
	answersPath := fs.String("answers", "", "optional answers JSON file to prefill")
	output := outputFlag(fs, e)
	if err := fs.Parse(args); err != nil {
		return err
	}
	inst, err := lookup(e, *id)
	if err != nil {
		return err
	}
	prefill := model.Answers{}
	if *answersPath != "" {
		if prefill, err = readAnswers(e, *answersPath); err != nil {
			return err
		}
	}

	s, err := labforms.NewSession(inst, prefill)
	if err != nil {
		return err
	}
	filler := prompt.New(
		prompt.WithDriver(prompt.NewSurveyDriver(e.stderr)),
		prompt.WithLogger(e.logger),
	)
	result, err := filler.Fill(ctx, s)
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			fmt.Fprintln(e.stderr, "aborted")
			return errFailed
		}
		return reportRejection(e, *output, err)
	}
	e.logger.Info("instrument filled", zap.String("instrument", inst.ID), zap.Int("visible", len(result.Visible)))

	if *output == "json" {
		return writeJSON(e.stdout, result)
	}
	return writeMeasures(e.stdout, *output, result.Measures)
}

func lookup(e *env, id string) (*instrument.Instrument, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return e.reg.Get(id)
}

func evaluate(e *env, id, answersPath string) (*instrument.Result, error) {
	inst, err := lookup(e, id)
	if err != nil {
		return nil, err
	}
	answers, err := readAnswers(e, answersPath)
	if err != nil {
		return nil, err
	}
	result, err := labforms.Evaluate(inst, answers)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("submission accepted",
		zap.String("instrument", inst.ID),
		zap.Int("visible", len(result.Visible)),
		zap.Int("warnings", len(result.Measures.Warnings)),
	)
	return result, nil
}

// reportRejection prints validation issues on stdout and passes every other
// error through.
func reportRejection(e *env, output string, err error) error {
	var verrs *validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	e.logger.Debug("submission rejected", zap.Int("issues", verrs.Len()))
	if output == "json" {
		if werr := writeJSON(e.stdout, verrs); werr != nil {
			return werr
		}
		return errFailed
	}
	for _, issue := range verrs.Issues {
		fmt.Fprintf(e.stdout, "%s: %s\n", issue.Path, issue.Message)
	}
	return errFailed
}

func readAnswers(e *env, path string) (model.Answers, error) {
	var (
		raw []byte
		err error
	)
	switch path {
	case "":
		return nil, errors.New("-answers is required")
	case "-":
		raw, err = io.ReadAll(e.stdin)
	default:
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	answers := model.Answers{}
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("decode answers %s: %w", path, err)
	}
	return answers, nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
