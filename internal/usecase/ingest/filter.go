package ingest

import (
	"slices"

	"content-mesh/internal/domain/entity"
)

// Filter selects the collections whose records are fetched.
// An empty Allow list admits every collection; Block always wins.
type Filter struct {
	Allow []string `yaml:"allow"`
	Block []string `yaml:"block"`
}

// Allows reports whether collection passes the filter.
func (f Filter) Allows(collection string) bool {
	if slices.Contains(f.Block, collection) {
		return false
	}
	return len(f.Allow) == 0 || slices.Contains(f.Allow, collection)
}

// selection splits the declared collections into those to fetch and those
// skipped. System collections are never fetched as content; the file
// collection is fetched separately and appears in neither list.
type selection struct {
	content []entity.Collection
	skipped []string
}

func selectCollections(all []entity.Collection, f Filter, fileCollection string) selection {
	var s selection
	for _, c := range all {
		if fileCollection != "" && c.Name == fileCollection {
			continue
		}
		if c.IsSystem() || !f.Allows(c.Name) {
			s.skipped = append(s.skipped, c.Name)
			continue
		}
		s.content = append(s.content, c)
	}
	return s
}

// fileInfo returns the declaration of the file collection, synthesising one
// when the API does not list it.
func fileInfo(all []entity.Collection, name string) entity.Collection {
	for _, c := range all {
		if c.Name == name {
			return c
		}
	}
	return entity.Collection{Name: name, Hidden: true}
}
