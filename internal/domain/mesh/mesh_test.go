package mesh

import (
	"encoding/json"
	"errors"
	"testing"

	"content-mesh/internal/domain/entity"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coll(name string, records ...Record) CollectionData {
	return CollectionData{Info: entity.Collection{Name: name}, Records: records}
}

func keys(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key()
	}
	return out
}

func relationOf(t *testing.T, m *Mesh, kind entity.Kind) Relation {
	t.Helper()
	for _, r := range m.Relations() {
		if r.Declaration().Kind == kind {
			return r
		}
	}
	t.Fatalf("no %s relation bound", kind)
	return nil
}

// postsAndAuthors is Post(id, authorId) and Author(id) joined by a simple relation.
func postsAndAuthors(t *testing.T) *Mesh {
	t.Helper()
	m, err := New(Input{
		Collections: []CollectionData{
			coll("author", Record{"id": float64(1)}, Record{"id": float64(2)}),
			coll("post",
				Record{"id": float64(10), "authorId": float64(1)},
				Record{"id": float64(11), "authorId": float64(1)},
				Record{"id": float64(12), "authorId": float64(2)},
			),
		},
		Relations: []entity.Relation{
			{SrcCollection: "author", SrcField: "posts", DestCollection: "post", DestField: "authorId", Kind: entity.KindSimple},
		},
	})
	require.NoError(t, err)
	return m
}

func TestSimpleRelation_PostsAndAuthors(t *testing.T) {
	m := postsAndAuthors(t)
	rel := relationOf(t, m, entity.KindSimple)

	fromAuthor := rel.Resolve(m.Node("author", "1"), SideSrc)
	assert.Equal(t, CardinalityMany, fromAuthor.Cardinality)
	assert.Equal(t, []string{"10", "11"}, keys(fromAuthor.Nodes))

	fromPost := rel.Resolve(m.Node("post", "12"), SideDest)
	assert.Equal(t, CardinalityOne, fromPost.Cardinality)
	assert.Equal(t, []string{"2"}, keys(fromPost.Nodes))
}

func TestSimpleRelation_SidesAreConsistent(t *testing.T) {
	m := postsAndAuthors(t)
	rel := relationOf(t, m, entity.KindSimple)

	for _, author := range m.Collection("author").Nodes() {
		for _, post := range rel.Resolve(author, SideSrc).Nodes {
			back := rel.Resolve(post, SideDest)
			require.Len(t, back.Nodes, 1)
			assert.Same(t, author, back.Nodes[0])
		}
	}
}

func TestMesh_AttachesNodeRelations(t *testing.T) {
	m := postsAndAuthors(t)

	author := m.Node("author", "1")
	require.Len(t, author.Relations(), 1)
	want := NodeRelation{
		Field:             "posts",
		RelatedField:      "authorId",
		RelatedCollection: "post",
		Kind:              entity.KindSimple,
		Cardinality:       CardinalityMany,
		Keys:              []string{"10", "11"},
	}
	if diff := cmp.Diff(want, author.Relations()[0]); diff != "" {
		t.Errorf("author relation mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"10", "11"}, keys(m.Related(author.Relations()[0])))

	post := m.Node("post", "12")
	require.Len(t, post.Relations(), 1)
	assert.Equal(t, "authorId", post.Relations()[0].Field)
	assert.Equal(t, "posts", post.Relations()[0].RelatedField)
	assert.Equal(t, "author", post.Relations()[0].RelatedCollection)
	assert.Equal(t, CardinalityOne, post.Relations()[0].Cardinality)
	assert.Equal(t, "post", post.Collection())

	stats := m.Stats()
	assert.Equal(t, 2, stats.Collections)
	assert.Equal(t, 5, stats.Nodes)
	assert.Equal(t, 5, stats.Edges)
	assert.Equal(t, 5, stats.SimpleEdges)
}

func tagged(t *testing.T) *Mesh {
	t.Helper()
	m, err := New(Input{
		Collections: []CollectionData{
			coll("posts", Record{"id": "p1"}, Record{"id": "p2"}, Record{"id": "p3"}),
			coll("tags", Record{"id": float64(1)}, Record{"id": float64(2)}),
			coll("posts_tags",
				Record{"id": float64(100), "posts_id": "p1", "tags_id": float64(1)},
				Record{"id": float64(101), "posts_id": "p1", "tags_id": float64(2)},
				Record{"id": float64(102), "posts_id": "p2", "tags_id": float64(2)},
				Record{"id": float64(103), "posts_id": "p2", "tags_id": float64(99)},
				Record{"id": float64(104), "posts_id": "gone", "tags_id": float64(1)},
			),
		},
		Relations: []entity.Relation{{
			SrcCollection:  "posts",
			SrcField:       "tags",
			DestCollection: "tags",
			DestField:      "posts",
			Kind:           entity.KindJunction,
			Junction:       &entity.JunctionSpec{Table: "posts_tags", SrcField: "posts_id", DestField: "tags_id"},
		}},
	})
	require.NoError(t, err)
	return m
}

func TestJunctionRelation_Resolves(t *testing.T) {
	m := tagged(t)
	rel := relationOf(t, m, entity.KindJunction)

	assert.Equal(t, []string{"1", "2"}, keys(rel.Resolve(m.Node("posts", "p1"), SideSrc).Nodes))
	// Tag 99 does not exist; the dangling row is skipped.
	assert.Equal(t, []string{"2"}, keys(rel.Resolve(m.Node("posts", "p2"), SideSrc).Nodes))
	assert.Empty(t, rel.Resolve(m.Node("posts", "p3"), SideSrc).Nodes)

	// Post "gone" does not exist; the dangling row is skipped.
	assert.Equal(t, []string{"p1"}, keys(rel.Resolve(m.Node("tags", "1"), SideDest).Nodes))
	assert.Equal(t, []string{"p1", "p2"}, keys(rel.Resolve(m.Node("tags", "2"), SideDest).Nodes))
}

func TestJunctionRelation_IsSymmetric(t *testing.T) {
	m := tagged(t)
	rel := relationOf(t, m, entity.KindJunction)

	for _, post := range m.Collection("posts").Nodes() {
		for _, tag := range rel.Resolve(post, SideSrc).Nodes {
			back := rel.Resolve(tag, SideDest)
			assert.Contains(t, back.Nodes, post, "tag %s should resolve back to post %s", tag.Key(), post.Key())
		}
	}
	for _, tag := range m.Collection("tags").Nodes() {
		for _, post := range rel.Resolve(tag, SideDest).Nodes {
			assert.Contains(t, rel.Resolve(post, SideSrc).Nodes, tag)
		}
	}
}

func TestJunctionRelation_FlagsJunctionCollection(t *testing.T) {
	m := tagged(t)

	assert.True(t, m.Collection("posts_tags").IsJunction())
	assert.False(t, m.Collection("posts").IsJunction())
	assert.False(t, m.Collection("tags").IsJunction())
	assert.Len(t, m.Collections(), 3, "junction collections stay visible")
	assert.Equal(t, 1, m.Stats().Junctions)

	// Post p3 has no tags and gets no relation at all.
	assert.Empty(t, m.Node("posts", "p3").Relations())
	assert.Empty(t, m.Node("posts_tags", "100").Relations())
}

func filed(t *testing.T) *Mesh {
	t.Helper()
	m, err := New(Input{
		Collections: []CollectionData{
			coll("directus_files", Record{"id": "f-1"}, Record{"id": "f-2"}),
			coll("posts",
				Record{"id": float64(1), "cover": "f-1"},
				Record{"id": float64(2), "cover": map[string]any{"id": "f-2", "title": "expanded"}},
				Record{"id": float64(3), "cover": nil},
				Record{"id": float64(4), "cover": "f-missing"},
			),
		},
		Relations: []entity.Relation{
			{SrcCollection: "directus_files", DestCollection: "posts", DestField: "cover", Kind: entity.KindFile},
		},
		FileCollection: "directus_files",
	})
	require.NoError(t, err)
	return m
}

func TestFileRelation_Resolves(t *testing.T) {
	m := filed(t)
	rel := relationOf(t, m, entity.KindFile)

	tests := []struct {
		post string
		want Resolved
	}{
		{post: "1", want: Resolved{Cardinality: CardinalityOne, Nodes: []*Node{m.Node("directus_files", "f-1")}}},
		{post: "2", want: Resolved{Cardinality: CardinalityOne, Nodes: []*Node{m.Node("directus_files", "f-2")}}},
		{post: "3", want: Resolved{Cardinality: CardinalityNone}},
		{post: "4", want: Resolved{Cardinality: CardinalityNone}},
	}
	for _, tt := range tests {
		t.Run("post "+tt.post, func(t *testing.T) {
			got := rel.Resolve(m.Node("posts", tt.post), SideDest)
			assert.Equal(t, tt.want.Cardinality, got.Cardinality)
			assert.Equal(t, keys(tt.want.Nodes), keys(got.Nodes))
		})
	}
}

func TestFileRelation_SrcSideIsNone(t *testing.T) {
	m := filed(t)
	rel := relationOf(t, m, entity.KindFile)

	for _, file := range m.Collection("directus_files").Nodes() {
		got := rel.Resolve(file, SideSrc)
		assert.Equal(t, CardinalityNone, got.Cardinality)
		assert.Nil(t, got.Nodes, "must be no relation, not an empty list")
		assert.Empty(t, file.Relations())
	}
	assert.Equal(t, 2, m.Stats().FileEdges)
	assert.Equal(t, "directus_files", m.FileCollection())
}

func TestNew_SkipsRelationsToMissingCollections(t *testing.T) {
	m, err := New(Input{
		Collections: []CollectionData{coll("posts", Record{"id": float64(1), "author": float64(1)})},
		Relations: []entity.Relation{
			{SrcCollection: "authors", DestCollection: "posts", DestField: "author"},
			{SrcCollection: "posts", DestCollection: "tags", Kind: entity.KindJunction,
				Junction: &entity.JunctionSpec{Table: "posts_tags", SrcField: "posts_id", DestField: "tags_id"}},
			{SrcCollection: "posts", DestCollection: "posts", Kind: entity.KindSimple},
		},
	})

	require.NoError(t, err)
	assert.Empty(t, m.Relations())
	assert.Equal(t, 3, m.Stats().SkippedRelations)
	assert.Empty(t, m.Node("posts", "1").Relations())
}

func TestNew_JunctionTableMissing(t *testing.T) {
	m, err := New(Input{
		Collections: []CollectionData{coll("posts"), coll("tags")},
		Relations: []entity.Relation{{
			SrcCollection: "posts", DestCollection: "tags", Kind: entity.KindJunction,
			Junction: &entity.JunctionSpec{Table: "posts_tags", SrcField: "posts_id", DestField: "tags_id"},
		}},
	})

	require.NoError(t, err)
	assert.Empty(t, m.Relations())
}

func TestNew_DropsRecordsWithoutUsableKeys(t *testing.T) {
	m, err := New(Input{
		Collections: []CollectionData{{
			Info:       entity.Collection{Name: "languages"},
			PrimaryKey: "code",
			Records: []Record{
				{"code": "en", "name": "English"},
				{"code": "en", "name": "Duplicate"},
				{"name": "No code"},
				{"code": "fr"},
			},
		}},
	})

	require.NoError(t, err)
	c := m.Collection("languages")
	assert.Equal(t, "code", c.PrimaryKeyField())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "English", c.Node("en").Value("name"))
	assert.Equal(t, 2, m.Stats().DroppedRecords)
}

func TestNew_RejectsBadCollections(t *testing.T) {
	_, err := New(Input{Collections: []CollectionData{coll("posts"), coll("posts")}})
	assert.True(t, errors.Is(err, ErrDuplicateCollection))

	_, err = New(Input{Collections: []CollectionData{coll("")}})
	assert.ErrorIs(t, err, entity.ErrInvalidCollection)
}

func TestMesh_Lookups(t *testing.T) {
	m := postsAndAuthors(t)

	assert.Nil(t, m.Collection("missing"))
	assert.Nil(t, m.Node("missing", "1"))
	assert.Nil(t, m.Node("post", "999"))
	assert.Nil(t, m.Related(NodeRelation{RelatedCollection: "missing", Keys: []string{"1"}}))
	assert.Equal(t, entity.DefaultPrimaryKey, m.Collection("post").PrimaryKeyField())
	assert.Equal(t, "post", m.Collection("post").Info().Name)
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   string
		wantOK bool
	}{
		{name: "string", value: "abc", want: "abc", wantOK: true},
		{name: "empty string", value: "", wantOK: false},
		{name: "nil", value: nil, wantOK: false},
		{name: "json float", value: float64(42), want: "42", wantOK: true},
		{name: "fractional float", value: 1.5, want: "1.5", wantOK: true},
		{name: "large float", value: float64(1e21), want: "1000000000000000000000", wantOK: true},
		{name: "json number", value: json.Number("7"), want: "7", wantOK: true},
		{name: "int", value: 3, want: "3", wantOK: true},
		{name: "int64", value: int64(-9), want: "-9", wantOK: true},
		{name: "expanded object", value: map[string]any{"id": float64(5)}, want: "5", wantOK: true},
		{name: "expanded record", value: Record{"id": "x"}, want: "x", wantOK: true},
		{name: "object without key", value: map[string]any{"title": "t"}, wantOK: false},
		{name: "bool", value: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyOf(tt.value, "id")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "src", SideSrc.String())
	assert.Equal(t, "dest", SideDest.String())
	assert.Equal(t, "none", CardinalityNone.String())
	assert.Equal(t, "one", CardinalityOne.String())
	assert.Equal(t, "many", CardinalityMany.String())
	assert.True(t, Resolved{Cardinality: CardinalityMany}.Empty())
}
