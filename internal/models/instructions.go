package models

import (
	"time"

	"github.com/google/uuid"
)

// InstructionSet is a key to text override map.
// OrgID is nil for the single global set authored by superadmins.
// An absent key, or a key mapped to an empty string, means "no override".
type InstructionSet struct {
	OrgID     *uuid.UUID
	Overrides map[string]string
	UpdatedAt time.Time
	UpdatedBy *uuid.UUID
}

// IsGlobal returns true for the global instruction set.
func (s *InstructionSet) IsGlobal() bool {
	return s.OrgID == nil
}

// Clone returns a deep copy of the set.
func (s *InstructionSet) Clone() *InstructionSet {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Overrides != nil {
		clone.Overrides = make(map[string]string, len(s.Overrides))
		for k, v := range s.Overrides {
			clone.Overrides[k] = v
		}
	}
	if s.OrgID != nil {
		id := *s.OrgID
		clone.OrgID = &id
	}
	if s.UpdatedBy != nil {
		id := *s.UpdatedBy
		clone.UpdatedBy = &id
	}
	return &clone
}
