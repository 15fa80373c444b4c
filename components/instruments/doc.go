// Package instruments provides the built-in instrument catalogue. Most
// instruments are declared in Go; perfusion and housing-check are embedded
// YAML definitions under data/ loaded through pkg/definition.
package instruments
