package entity

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRelations(t *testing.T) {
	tests := []struct {
		name string
		raw  []RawRelation
		want []Relation
	}{
		{
			name: "simple one-to-many",
			raw: []RawRelation{
				{ManyCollection: "posts", ManyField: "author", OneCollection: "authors", OneField: "posts"},
			},
			want: []Relation{
				{SrcCollection: "authors", SrcField: "posts", DestCollection: "posts", DestField: "author", Kind: KindSimple},
			},
		},
		{
			name: "file attachment",
			raw: []RawRelation{
				{ManyCollection: "posts", ManyField: "cover", OneCollection: "directus_files"},
			},
			want: []Relation{
				{SrcCollection: "directus_files", DestCollection: "posts", DestField: "cover", Kind: KindFile},
			},
		},
		{
			name: "junction pair",
			raw: []RawRelation{
				{ManyCollection: "posts_tags", ManyField: "posts_id", OneCollection: "posts", OneField: "tags", JunctionField: "tags_id"},
				{ManyCollection: "posts_tags", ManyField: "tags_id", OneCollection: "tags", OneField: "posts", JunctionField: "posts_id"},
			},
			want: []Relation{
				{
					SrcCollection:  "posts",
					SrcField:       "tags",
					DestCollection: "tags",
					DestField:      "posts",
					Kind:           KindJunction,
					Junction:       &JunctionSpec{Table: "posts_tags", SrcField: "posts_id", DestField: "tags_id"},
				},
			},
		},
		{
			name: "junction to files stays junction",
			raw: []RawRelation{
				{ManyCollection: "posts_files", ManyField: "posts_id", OneCollection: "posts", OneField: "gallery", JunctionField: "directus_files_id"},
				{ManyCollection: "posts_files", ManyField: "directus_files_id", OneCollection: "directus_files", JunctionField: "posts_id"},
			},
			want: []Relation{
				{
					SrcCollection:  "posts",
					SrcField:       "gallery",
					DestCollection: "directus_files",
					Kind:           KindJunction,
					Junction:       &JunctionSpec{Table: "posts_files", SrcField: "posts_id", DestField: "directus_files_id"},
				},
			},
		},
		{
			name: "unpaired junction row falls back to simple",
			raw: []RawRelation{
				{ManyCollection: "posts_tags", ManyField: "posts_id", OneCollection: "posts", JunctionField: "tags_id"},
			},
			want: []Relation{
				{SrcCollection: "posts", DestCollection: "posts_tags", DestField: "posts_id", Kind: KindSimple},
			},
		},
		{
			name: "incomplete rows are dropped",
			raw: []RawRelation{
				{ManyCollection: "posts", ManyField: "author"},
				{ManyCollection: "", ManyField: "x", OneCollection: "authors"},
			},
			want: []Relation{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRelations(tt.raw, "directus_files")

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildRelations() mismatch (-want +got):\n%s", diff)
			}
			for _, r := range got {
				assert.NoError(t, r.Validate(), r.String())
			}
		})
	}
}

func TestBuildRelations_NoFileCollection(t *testing.T) {
	raw := []RawRelation{{ManyCollection: "posts", ManyField: "cover", OneCollection: "directus_files"}}

	got := BuildRelations(raw, "")

	require.Len(t, got, 1)
	assert.Equal(t, KindSimple, got[0].Kind)
}

func TestRelation_Validate(t *testing.T) {
	tests := []struct {
		name      string
		relation  Relation
		wantField string
	}{
		{
			name:      "missing src",
			relation:  Relation{DestCollection: "posts", DestField: "author"},
			wantField: "src_collection",
		},
		{
			name:      "missing dest",
			relation:  Relation{SrcCollection: "authors", DestField: "author"},
			wantField: "dest_collection",
		},
		{
			name:      "simple without dest field",
			relation:  Relation{SrcCollection: "authors", DestCollection: "posts"},
			wantField: "dest_field",
		},
		{
			name: "simple with junction",
			relation: Relation{SrcCollection: "authors", DestCollection: "posts", DestField: "author",
				Junction: &JunctionSpec{Table: "x"}},
			wantField: "junction",
		},
		{
			name:      "junction without spec",
			relation:  Relation{SrcCollection: "posts", DestCollection: "tags", Kind: KindJunction},
			wantField: "junction",
		},
		{
			name: "junction without table",
			relation: Relation{SrcCollection: "posts", DestCollection: "tags", Kind: KindJunction,
				Junction: &JunctionSpec{SrcField: "a", DestField: "b"}},
			wantField: "junction.table",
		},
		{
			name: "junction missing field",
			relation: Relation{SrcCollection: "posts", DestCollection: "tags", Kind: KindJunction,
				Junction: &JunctionSpec{Table: "posts_tags", SrcField: "a"}},
			wantField: "junction.fields",
		},
		{
			name:      "unknown kind",
			relation:  Relation{SrcCollection: "a", DestCollection: "b", Kind: Kind(9)},
			wantField: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.relation.Validate()

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRelation))
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestRelation_StringAndCollections(t *testing.T) {
	simple := Relation{SrcCollection: "authors", DestCollection: "posts", DestField: "author"}
	junction := Relation{
		SrcCollection: "posts", SrcField: "tags", DestCollection: "tags", DestField: "posts", Kind: KindJunction,
		Junction: &JunctionSpec{Table: "posts_tags", SrcField: "posts_id", DestField: "tags_id"},
	}

	assert.Equal(t, "simple(authors. -> posts.author)", simple.String())
	assert.Equal(t, "junction(posts.tags <-posts_tags-> tags.posts)", junction.String())
	assert.Equal(t, []string{"authors", "posts"}, simple.Collections())
	assert.Equal(t, []string{"posts", "tags", "posts_tags"}, junction.Collections())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}

func TestPrimaryKeys(t *testing.T) {
	fields := []Field{
		{Collection: "posts", Field: "id", IsPrimaryKey: true},
		{Collection: "posts", Field: "title"},
		{Collection: "languages", Field: "code", IsPrimaryKey: true},
		{Collection: "languages", Field: "other", IsPrimaryKey: true},
		{Collection: "tags", Field: "name"},
	}

	keys := PrimaryKeys(fields)

	assert.Equal(t, map[string]string{"posts": "id", "languages": "code"}, keys)
	assert.Equal(t, "code", PrimaryKeyOf(keys, "languages"))
	assert.Equal(t, DefaultPrimaryKey, PrimaryKeyOf(keys, "tags"))
}

func TestCollection(t *testing.T) {
	assert.True(t, Collection{Name: "directus_files"}.IsSystem())
	assert.False(t, Collection{Name: "posts"}.IsSystem())

	assert.NoError(t, Collection{Name: "posts"}.Validate())
	err := Collection{Name: "  "}.Validate()
	assert.ErrorIs(t, err, ErrInvalidCollection)
}
