// Package prompt asks the user to pick a registered type on a terminal.
package prompt

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/olehluchkiv/typereg/internal/registry"
)

// ErrNotInteractive is returned when stdin is not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// ErrEmptyRegistry is returned when there is nothing to pick from.
var ErrEmptyRegistry = errors.New("registry is empty")

// TypePicker offers the registered types as a selectable list.
type TypePicker struct {
	reg *registry.Registry
}

// NewTypePicker creates a TypePicker over reg.
func NewTypePicker(reg *registry.Registry) *TypePicker {
	return &TypePicker{reg: reg}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TypePicker) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Pick shows the type list and returns the selected type name.
func (p *TypePicker) Pick() (string, error) {
	if !p.IsInteractive() {
		return "", ErrNotInteractive
	}
	opts, err := p.options()
	if err != nil {
		return "", err
	}

	var selection string
	err = huh.NewSelect[string]().
		Title("Select a type").
		Description(fmt.Sprintf("%d registered types", len(opts))).
		Options(opts...).
		Height(15).
		Value(&selection).
		Run()
	if err != nil {
		return "", err
	}
	return selection, nil
}

// options lists every registered type, sorted by name, labelled with its
// kind. Types removed since Names was read are skipped.
func (p *TypePicker) options() ([]huh.Option[string], error) {
	names := p.reg.Names()
	if len(names) == 0 {
		return nil, ErrEmptyRegistry
	}
	opts := make([]huh.Option[string], 0, len(names))
	for _, name := range names {
		d, err := p.reg.Lookup(name)
		if err != nil {
			continue
		}
		opts = append(opts, huh.NewOption(label(d), name))
	}
	return opts, nil
}

func label(d registry.TypeDescriptor) string {
	return fmt.Sprintf("%s (%s %s)", d.Name, d.Visibility, d.Kind)
}
