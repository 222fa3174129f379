package entity

import "fmt"

// Kind selects how a relation is resolved.
type Kind int

const (
	// KindSimple is a one-to-many relation through a foreign key on the dest side.
	KindSimple Kind = iota
	// KindJunction is a many-to-many relation through a junction collection.
	KindJunction
	// KindFile attaches a file record to the collection referencing it.
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindJunction:
		return "junction"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// RawRelation is a relation row as the content API declares it.
//
// ManyCollection holds the foreign key ManyField pointing at OneCollection.
// OneField is the optional alias field on OneCollection listing the "many"
// side. JunctionField is set on both rows of a many-to-many pair and names the
// sibling foreign key inside the junction collection.
type RawRelation struct {
	ManyCollection string `json:"many_collection"`
	ManyField      string `json:"many_field"`
	OneCollection  string `json:"one_collection"`
	OneField       string `json:"one_field"`
	JunctionField  string `json:"junction_field"`
}

// JunctionSpec names the junction collection of a many-to-many relation and
// its two foreign key fields.
type JunctionSpec struct {
	Table     string
	SrcField  string // Junction field referencing the src collection
	DestField string // Junction field referencing the dest collection
}

// Relation is a typed relation declaration. One declaration resolves in both
// directions.
type Relation struct {
	SrcCollection  string
	SrcField       string
	DestCollection string
	DestField      string
	Kind           Kind
	Junction       *JunctionSpec
}

func (r Relation) String() string {
	if r.Kind == KindJunction && r.Junction != nil {
		return fmt.Sprintf("%s(%s.%s <-%s-> %s.%s)", r.Kind, r.SrcCollection, r.SrcField,
			r.Junction.Table, r.DestCollection, r.DestField)
	}
	return fmt.Sprintf("%s(%s.%s -> %s.%s)", r.Kind, r.SrcCollection, r.SrcField, r.DestCollection, r.DestField)
}

// Collections returns every collection the relation touches, junction included.
func (r Relation) Collections() []string {
	out := []string{r.SrcCollection, r.DestCollection}
	if r.Junction != nil {
		out = append(out, r.Junction.Table)
	}
	return out
}

// BuildRelations converts raw relation rows into typed declarations.
//
// Rows with a junction field are paired by junction collection; a complete
// pair becomes one junction relation whose src is the first row's target.
// A remaining row targeting fileCollection becomes a file relation and every
// other row a simple one. Rows missing a collection or foreign key are
// dropped. Output order follows the first row of each declaration.
func BuildRelations(raw []RawRelation, fileCollection string) []Relation {
	relations := make([]Relation, 0, len(raw))
	paired := make([]bool, len(raw))

	for i, a := range raw {
		if paired[i] || a.JunctionField == "" || !a.complete() {
			continue
		}
		for j := i + 1; j < len(raw); j++ {
			b := raw[j]
			if paired[j] || b.ManyCollection != a.ManyCollection || !b.complete() {
				continue
			}
			if a.JunctionField != b.ManyField || b.JunctionField != a.ManyField {
				continue
			}
			paired[i], paired[j] = true, true
			relations = append(relations, Relation{
				SrcCollection:  a.OneCollection,
				SrcField:       a.OneField,
				DestCollection: b.OneCollection,
				DestField:      b.OneField,
				Kind:           KindJunction,
				Junction: &JunctionSpec{
					Table:     a.ManyCollection,
					SrcField:  a.ManyField,
					DestField: b.ManyField,
				},
			})
			break
		}
	}

	for i, r := range raw {
		if paired[i] || !r.complete() {
			continue
		}
		kind := KindSimple
		if fileCollection != "" && r.OneCollection == fileCollection {
			kind = KindFile
		}
		relations = append(relations, Relation{
			SrcCollection:  r.OneCollection,
			SrcField:       r.OneField,
			DestCollection: r.ManyCollection,
			DestField:      r.ManyField,
			Kind:           kind,
		})
	}

	return relations
}

func (r RawRelation) complete() bool {
	return r.ManyCollection != "" && r.ManyField != "" && r.OneCollection != ""
}
