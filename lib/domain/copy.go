package domain

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// DeepCopy clones the definition, including every device and nested pointer.
// Formatting and ABI checks operate on copies so the registry's object is
// never mutated.
func (def *Definition) DeepCopy() (*Definition, error) {
	out := &Definition{}
	if err := copier.CopyWithOption(out, def, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copying definition: %w", err)
	}
	return out, nil
}
