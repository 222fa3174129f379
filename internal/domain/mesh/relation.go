package mesh

import (
	"fmt"

	"content-mesh/internal/domain/entity"
)

// Side is the endpoint of a relation a node is resolved from.
type Side int

const (
	SideSrc Side = iota
	SideDest
)

func (s Side) String() string {
	if s == SideSrc {
		return "src"
	}
	return "dest"
}

// Cardinality tells a consumer how to shape a resolved relation.
type Cardinality int

const (
	// CardinalityNone means the relation does not apply to the node.
	CardinalityNone Cardinality = iota
	CardinalityOne
	CardinalityMany
)

func (c Cardinality) String() string {
	switch c {
	case CardinalityOne:
		return "one"
	case CardinalityMany:
		return "many"
	default:
		return "none"
	}
}

// Resolved is the outcome of resolving a relation for one node.
type Resolved struct {
	Cardinality Cardinality
	Nodes       []*Node
}

// Empty reports whether there is nothing to attach.
func (r Resolved) Empty() bool {
	return r.Cardinality == CardinalityNone || len(r.Nodes) == 0
}

func none() Resolved { return Resolved{Cardinality: CardinalityNone} }

func one(n *Node) Resolved {
	if n == nil {
		return none()
	}
	return Resolved{Cardinality: CardinalityOne, Nodes: []*Node{n}}
}

func many(nodes []*Node) Resolved {
	if nodes == nil {
		nodes = []*Node{}
	}
	return Resolved{Cardinality: CardinalityMany, Nodes: nodes}
}

// Relation resolves a declared relation for nodes on either side.
//
// Results are computed from the current collection contents on every call.
// Foreign keys that match no node are dropped without error.
// The implementations are SimpleRelation, JunctionRelation and FileRelation.
type Relation interface {
	Declaration() entity.Relation
	Resolve(n *Node, side Side) Resolved
	relation()
}

// lookup returns the bound collection for a name, or nil.
type lookup func(name string) *Collection

// newRelation binds decl to its collections and selects the variant by kind.
func newRelation(decl entity.Relation, find lookup) (Relation, error) {
	src, dest := find(decl.SrcCollection), find(decl.DestCollection)
	if src == nil {
		return nil, fmt.Errorf("src collection %q not loaded", decl.SrcCollection)
	}
	if dest == nil {
		return nil, fmt.Errorf("dest collection %q not loaded", decl.DestCollection)
	}

	switch decl.Kind {
	case entity.KindSimple:
		return &SimpleRelation{decl: decl, src: src, dest: dest}, nil
	case entity.KindFile:
		return &FileRelation{decl: decl, files: src, dest: dest}, nil
	case entity.KindJunction:
		junction := find(decl.Junction.Table)
		if junction == nil {
			return nil, fmt.Errorf("junction collection %q not loaded", decl.Junction.Table)
		}
		junction.markJunction()
		return &JunctionRelation{decl: decl, src: src, dest: dest, junction: junction}, nil
	default:
		return nil, fmt.Errorf("unsupported relation kind %s", decl.Kind)
	}
}

// SimpleRelation is a one-to-many relation: every dest node carries the src
// node's primary key in DestField.
type SimpleRelation struct {
	decl entity.Relation
	src  *Collection
	dest *Collection
}

func (r *SimpleRelation) relation() {}

// Declaration returns the relation declaration.
func (r *SimpleRelation) Declaration() entity.Relation { return r.decl }

// Resolve returns every dest node referencing n from the src side, and the
// referenced src node from the dest side.
func (r *SimpleRelation) Resolve(n *Node, side Side) Resolved {
	if side == SideDest {
		key, ok := KeyOf(n.Value(r.decl.DestField), r.src.pkField)
		if !ok {
			return none()
		}
		return one(r.src.Node(key))
	}

	var out []*Node
	for _, d := range r.dest.Nodes() {
		if key, ok := KeyOf(d.Value(r.decl.DestField), r.src.pkField); ok && key == n.key {
			out = append(out, d)
		}
	}
	return many(out)
}

// JunctionRelation is a many-to-many relation through a junction collection
// holding one row per linked pair.
type JunctionRelation struct {
	decl     entity.Relation
	src      *Collection
	dest     *Collection
	junction *Collection
}

func (r *JunctionRelation) relation() {}

// Declaration returns the relation declaration.
func (r *JunctionRelation) Declaration() entity.Relation { return r.decl }

// Junction returns the junction collection.
func (r *JunctionRelation) Junction() *Collection { return r.junction }

// Resolve returns the counterparts of n in the opposite collection, in
// junction row order. Rows whose counterpart is missing are skipped.
func (r *JunctionRelation) Resolve(n *Node, side Side) Resolved {
	near, far := r.decl.Junction.SrcField, r.decl.Junction.DestField
	self, other := r.src, r.dest
	if side == SideDest {
		near, far = far, near
		self, other = other, self
	}

	var out []*Node
	for _, row := range r.junction.Nodes() {
		key, ok := KeyOf(row.Value(near), self.pkField)
		if !ok || key != n.key {
			continue
		}
		otherKey, ok := KeyOf(row.Value(far), other.pkField)
		if !ok {
			continue
		}
		if target := other.Node(otherKey); target != nil {
			out = append(out, target)
		}
	}
	return many(out)
}

// FileRelation attaches a file to the dest node referencing it in DestField.
// Files carry no outward relations.
type FileRelation struct {
	decl  entity.Relation
	files *Collection
	dest  *Collection
}

func (r *FileRelation) relation() {}

// Declaration returns the relation declaration.
func (r *FileRelation) Declaration() entity.Relation { return r.decl }

// Resolve returns the referenced file from the dest side. The src side always
// resolves to CardinalityNone, never to an empty list.
func (r *FileRelation) Resolve(n *Node, side Side) Resolved {
	if side == SideSrc {
		return none()
	}
	key, ok := KeyOf(n.Value(r.decl.DestField), r.files.pkField)
	if !ok {
		return none()
	}
	return one(r.files.Node(key))
}
