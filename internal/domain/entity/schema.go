package entity

import (
	"fmt"
	"strings"
)

// SystemPrefix marks collections owned by the content API itself.
const SystemPrefix = "directus_"

// DefaultPrimaryKey is used for collections whose fields declare no primary key.
const DefaultPrimaryKey = "id"

// Collection is one collection declared by the content API.
type Collection struct {
	Name      string `json:"collection"`
	Singleton bool   `json:"singleton"`
	Hidden    bool   `json:"hidden"`
	Note      string `json:"note,omitempty"`
}

// IsSystem reports whether the collection belongs to the content API itself.
func (c Collection) IsSystem() bool {
	return strings.HasPrefix(c.Name, SystemPrefix)
}

// Validate checks that the collection can be fetched.
func (c Collection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, &ValidationError{Field: "collection", Message: "name is required"})
	}
	return nil
}

// Field is one field of a collection.
type Field struct {
	Collection   string `json:"collection"`
	Field        string `json:"field"`
	Type         string `json:"type"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

// PrimaryKeys maps every collection that declares a primary key field to it.
// Collections absent from the result use DefaultPrimaryKey.
func PrimaryKeys(fields []Field) map[string]string {
	keys := make(map[string]string)
	for _, f := range fields {
		if f.IsPrimaryKey && f.Collection != "" && f.Field != "" {
			if _, seen := keys[f.Collection]; !seen {
				keys[f.Collection] = f.Field
			}
		}
	}
	return keys
}

// PrimaryKeyOf returns the primary key field for collection.
func PrimaryKeyOf(keys map[string]string, collection string) string {
	if k, ok := keys[collection]; ok {
		return k
	}
	return DefaultPrimaryKey
}
