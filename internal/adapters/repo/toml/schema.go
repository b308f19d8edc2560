package toml

import (
	"fmt"

	"github.com/bnema/lonewatch/internal/adapters/repo/document"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version     int                         `toml:"version"`
	Users       map[string]string           `toml:"users"`
	Supervisors []int64                     `toml:"supervisors"`
	Sessions    map[string]document.Session `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

func toSchema(doc document.Document) fileSchema {
	return fileSchema{
		Version:     currentSchemaVersion,
		Users:       doc.Users,
		Supervisors: doc.Supervisors,
		Sessions:    doc.Sessions,
	}
}

func (s fileSchema) document() document.Document {
	return document.Document{
		Users:       s.Users,
		Supervisors: s.Supervisors,
		Sessions:    s.Sessions,
	}
}
