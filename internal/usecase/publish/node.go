// Package publish hands a built content mesh to a graph builder: every node
// becomes a GraphNode with a stable id, a type name and links to the nodes
// it relates to.
package publish

import (
	"encoding/json"
	"strings"
	"unicode"

	"content-mesh/internal/domain/entity"

	"github.com/google/uuid"
)

// TypePrefix starts every published type name.
const TypePrefix = "Directus"

// namespace scopes node ids so they never collide with other UUIDv5 users.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("content-mesh"))

// NodeID returns the deterministic id of the node keyed key in collection.
func NodeID(collection, key string) string {
	return uuid.NewSHA1(namespace, []byte(collection+"/"+key)).String()
}

// TypeName returns the graph type of collection: "blog_posts" becomes
// "DirectusBlogPosts" and the system collection "directus_files" becomes
// "DirectusFiles".
func TypeName(collection string) string {
	name := strings.TrimPrefix(collection, entity.SystemPrefix)
	var b strings.Builder
	b.WriteString(TypePrefix)
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Link points from a field to one or many node ids.
// It marshals as a string when single and as an array when many.
type Link struct {
	IDs  []string
	Many bool
}

// MarshalJSON implements json.Marshaler.
func (l Link) MarshalJSON() ([]byte, error) {
	if !l.Many && len(l.IDs) == 1 {
		return json.Marshal(l.IDs[0])
	}
	ids := l.IDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

// GraphNode is one node handed to a NodeBuilder.
type GraphNode struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	PrimaryKey string          `json:"primary_key"`
	Contents   map[string]any  `json:"contents"`
	Links      map[string]Link `json:"links,omitempty"`
}
