package report

import (
	"fmt"
	"path"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// ConfigFromSelection flattens a theme selection into renderer config:
// variant tokens override manifest tokens, each token becomes a CSS
// variable, and asset keys resolve against the manifest prefix.
func ConfigFromSelection(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:   selection.Theme,
		Variant: selection.Variant,
		Tokens:  map[string]string{},
		CSSVars: map[string]string{},
	}

	manifest := selection.Manifest
	if manifest == nil {
		return cfg
	}

	files := map[string]string{}
	prefix := manifest.Assets.Prefix
	for key, value := range manifest.Tokens {
		cfg.Tokens[key] = value
	}
	for key, file := range manifest.Assets.Files {
		files[key] = file
	}
	if variant, ok := manifest.Variants[selection.Variant]; ok {
		for key, value := range variant.Tokens {
			cfg.Tokens[key] = value
		}
		for key, file := range variant.Assets.Files {
			files[key] = file
		}
		if variant.Assets.Prefix != "" {
			prefix = variant.Assets.Prefix
		}
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+key] = value
	}

	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
			return file
		}
		return path.Join(prefix, file)
	}
	return cfg
}

// DefaultTheme names the built-in report theme.
const DefaultTheme = "lab"

// Themes returns a selector over the built-in report themes. An empty name
// selects DefaultTheme; an unknown variant falls back to the base tokens.
func Themes() theme.ThemeSelector {
	return manifestSelector{
		DefaultTheme: {
			Name:    DefaultTheme,
			Version: "1.0.0",
			Tokens: map[string]string{
				"labforms-font":       "system-ui, sans-serif",
				"labforms-foreground": "#1f2933",
				"labforms-background": "#ffffff",
				"labforms-accent":     "#2f6f8f",
				"labforms-warning":    "#b7791f",
			},
			Variants: map[string]theme.Variant{
				"dark": {Tokens: map[string]string{
					"labforms-foreground": "#e4e7eb",
					"labforms-background": "#1a202c",
					"labforms-accent":     "#63b3ed",
				}},
				"print": {Tokens: map[string]string{
					"labforms-accent":  "#000000",
					"labforms-warning": "#000000",
				}},
			},
		},
	}
}

type manifestSelector map[string]*theme.Manifest

func (m manifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = DefaultTheme
	}
	manifest, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("report: unknown theme %q", name)
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}
