package instruments

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/goliatone/go-labforms/pkg/definition"
	"github.com/goliatone/go-labforms/pkg/instrument"
)

//go:embed data/*.yaml
var dataFS embed.FS

var (
	declaredOnce sync.Once
	declared     []*instrument.Instrument
	declaredErr  error
)

// Registerer receives instruments. *catalog.Registry satisfies it.
type Registerer interface {
	Register(inst *instrument.Instrument) error
}

// Declared returns the instruments defined by the embedded YAML files. They
// are parsed once; every call returns the same definitions.
func Declared() ([]*instrument.Instrument, error) {
	declaredOnce.Do(func() {
		sub, err := fs.Sub(dataFS, "data")
		if err != nil {
			declaredErr = err
			return
		}
		declared, declaredErr = definition.LoadFS(sub)
	})

	if declaredErr != nil {
		return nil, fmt.Errorf("instruments: embedded definitions: %w", declaredErr)
	}
	return append([]*instrument.Instrument{}, declared...), nil
}

// All returns every built-in instrument: the Go-defined ones first, then the
// embedded declarations.
func All() ([]*instrument.Instrument, error) {
	out := []*instrument.Instrument{
		MouseWeight(),
		EndOfLife(),
		Histology(),
		TissueExtraction(),
		MRIScan(),
	}
	decl, err := Declared()
	if err != nil {
		return nil, err
	}
	return append(out, decl...), nil
}

// Register adds every built-in instrument to reg and stops at the first
// rejection.
func Register(reg Registerer) error {
	if reg == nil {
		return fmt.Errorf("instruments: missing registry")
	}
	all, err := All()
	if err != nil {
		return err
	}
	for _, inst := range all {
		if err := reg.Register(inst); err != nil {
			return fmt.Errorf("instruments: register %s: %w", inst.ID, err)
		}
	}
	return nil
}
