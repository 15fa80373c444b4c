// Package report renders the measure view of a submission as plain text or
// HTML. Templates are embedded under templates/ and rendered through a
// go-template engine; free-text answers are sanitized before they reach HTML
// output, and an optional go-theme configuration supplies tokens and a
// stylesheet as global template data.
package report

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	gotemplate "github.com/goliatone/go-template"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

// Format selects the output template.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// StylesheetAsset is the theme asset key linked from HTML reports.
const StylesheetAsset = "report.stylesheet"

const templateExt = ".tpl"

var templateNames = map[Format]string{
	FormatText: "report.txt",
	FormatHTML: "report.html",
}

// ParseFormat maps a flag value to a Format.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatText, "":
		return FormatText, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("report: unknown format %q", raw)
	}
}

// Row is one measure line.
type Row struct {
	Key       string
	Label     string
	Kind      string
	Text      string
	HTML      string
	Lines     []string
	HTMLLines []string
}

// Option configures a Renderer.
type Option func(*Renderer) error

// WithTheme applies a resolved theme configuration.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(r *Renderer) error {
		r.theme = cfg
		return nil
	}
}

// WithThemeSelector resolves name and variant through selector and applies
// the result.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(r *Renderer) error {
		if selector == nil {
			return nil
		}
		selection, err := selector.Select(name, variant)
		if err != nil {
			return fmt.Errorf("report: select theme %q: %w", name, err)
		}
		r.theme = ConfigFromSelection(selection)
		return nil
	}
}

// WithTemplates replaces the embedded templates. files must provide
// report.txt.tpl and report.html.tpl.
func WithTemplates(files fs.FS) Option {
	return func(r *Renderer) error {
		if files == nil {
			return errors.New("report: templates fs is nil")
		}
		r.files = files
		return nil
	}
}

// Renderer renders reports. It is safe for concurrent use.
type Renderer struct {
	files  fs.FS
	engine *gotemplate.Engine
	theme  *theme.RendererConfig
	policy *bluemonday.Policy
}

// New constructs a Renderer.
func New(options ...Option) (*Renderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("report: embedded templates: %w", err)
	}
	r := &Renderer{
		files:  sub,
		policy: bluemonday.UGCPolicy(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	engine, err := gotemplate.NewRenderer(
		gotemplate.WithFS(r.files),
		gotemplate.WithExtension(templateExt),
		gotemplate.WithGlobalData(r.globals()),
	)
	if err != nil {
		return nil, fmt.Errorf("report: template engine: %w", err)
	}
	r.engine = engine
	return r, nil
}

// Render produces the report for a successful submission.
func (r *Renderer) Render(format Format, inst *instrument.Instrument, result *instrument.Result) (string, error) {
	if inst == nil || result == nil {
		return "", errors.New("report: instrument and result are required")
	}
	name, ok := templateNames[format]
	if !ok {
		return "", fmt.Errorf("report: unknown format %q", format)
	}
	out, err := r.engine.Render(name, r.data(inst, result))
	if err != nil {
		return "", fmt.Errorf("report: render %s: %w", format, err)
	}
	return out, nil
}

// Write renders into w.
func (r *Renderer) Write(w io.Writer, format Format, inst *instrument.Instrument, result *instrument.Result) error {
	out, err := r.Render(format, inst, result)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// globals carries the theme into every template.
func (r *Renderer) globals() map[string]any {
	cfg := r.theme
	if cfg == nil {
		return nil
	}
	globals := map[string]any{
		"theme":    cfg.Theme,
		"variant":  cfg.Variant,
		"css_vars": cssVars(cfg.CSSVars),
	}
	if cfg.AssetURL != nil {
		globals["stylesheet"] = cfg.AssetURL(StylesheetAsset)
	}
	return globals
}

func (r *Renderer) data(inst *instrument.Instrument, result *instrument.Result) map[string]any {
	title := inst.Title()
	return map[string]any{
		"title":       title,
		"underline":   strings.Repeat("=", len([]rune(title))),
		"version":     inst.Version,
		"language":    inst.Language,
		"description": inst.Details.Description,
		"rows":        r.rows(result.Measures),
		"warnings":    warningLines(result.Measures.Warnings),
	}
}

func (r *Renderer) rows(proj measures.Projection) []Row {
	out := make([]Row, 0, len(proj.Values))
	for _, v := range proj.Values {
		row := Row{Key: v.Key, Label: v.Label, Kind: string(v.Kind)}
		if row.Label == "" {
			row.Label = v.Key
		}
		if table, ok := v.Value.([]map[string]any); ok {
			for _, entry := range table {
				line := tableLine(entry)
				row.Lines = append(row.Lines, line)
				row.HTMLLines = append(row.HTMLLines, r.policy.Sanitize(line))
			}
		} else {
			row.Text = measures.FormatValue(v.Value)
			row.HTML = r.policy.Sanitize(row.Text)
		}
		out = append(out, row)
	}
	return out
}

func tableLine(entry map[string]any) string {
	keys := make([]string, 0, len(entry))
	for key := range entry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+measures.FormatValue(entry[key]))
	}
	return strings.Join(parts, ", ")
}

func warningLines(warnings []measures.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}

func cssVars(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key]+";")
	}
	return strings.Join(parts, " ")
}
