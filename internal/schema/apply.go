package schema

import (
	"fmt"

	"github.com/vk/listmodel/internal/listmodel"
)

// Apply registers every role in declaration order and the constructor, if
// any, on m.
func (s *Schema) Apply(m *listmodel.Model) error {
	for _, r := range s.Roles {
		if err := m.AddRole(r.Name, r.Getter, r.Setter); err != nil {
			return fmt.Errorf("registering role %q: %w", r.Name, err)
		}
	}
	if s.Constructor != nil {
		if err := m.SetConstructor(s.Constructor); err != nil {
			return fmt.Errorf("registering constructor: %w", err)
		}
	}
	return nil
}
