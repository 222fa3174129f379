package publish

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"content-mesh/internal/domain/entity"
	"content-mesh/internal/domain/mesh"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func blogMesh(t *testing.T) *mesh.Mesh {
	t.Helper()
	in := mesh.Input{
		FileCollection: "directus_files",
		Collections: []mesh.CollectionData{
			{Info: entity.Collection{Name: "authors"}, Records: []mesh.Record{
				{"id": 1, "name": "Ada"},
			}},
			{Info: entity.Collection{Name: "blog_posts"}, Records: []mesh.Record{
				{"id": 1, "title": "Graphs", "author": 1, "cover": "f1"},
				{"id": 2, "title": "Drafts"},
			}},
			{Info: entity.Collection{Name: "tags"}, PrimaryKey: "slug", Records: []mesh.Record{
				{"slug": "go"}, {"slug": "graphs"},
			}},
			{Info: entity.Collection{Name: "posts_tags"}, Records: []mesh.Record{
				{"id": 10, "post": 1, "tag": "go"},
				{"id": 11, "post": 1, "tag": "graphs"},
			}},
			{Info: entity.Collection{Name: "directus_files"}, Records: []mesh.Record{
				{"id": "f1", "filename_disk": "cover.png"},
			}},
		},
		Relations: []entity.Relation{
			{SrcCollection: "authors", SrcField: "posts", DestCollection: "blog_posts", DestField: "author", Kind: entity.KindSimple},
			{SrcCollection: "directus_files", DestCollection: "blog_posts", DestField: "cover", Kind: entity.KindFile},
			{
				SrcCollection: "blog_posts", SrcField: "tags", DestCollection: "tags", DestField: "posts", Kind: entity.KindJunction,
				Junction: &entity.JunctionSpec{Table: "posts_tags", SrcField: "post", DestField: "tag"},
			},
			{SrcCollection: "blog_posts", SrcField: "tag_rows", DestCollection: "posts_tags", DestField: "post", Kind: entity.KindSimple},
		},
	}
	m, err := mesh.New(in, mesh.WithLogger(quietLogger()))
	require.NoError(t, err)
	return m
}

func decodeNodes(t *testing.T, buf *bytes.Buffer) map[string]map[string]any {
	t.Helper()
	out := map[string]map[string]any{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var node map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &node))
		out[node["collection"].(string)+"/"+node["primary_key"].(string)] = node
	}
	require.NoError(t, sc.Err())
	return out
}

func TestNodeID(t *testing.T) {
	a := NodeID("blog_posts", "1")
	assert.Equal(t, a, NodeID("blog_posts", "1"))
	assert.NotEqual(t, a, NodeID("authors", "1"))
	assert.NotEqual(t, a, NodeID("blog_posts", "2"))

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		collection string
		want       string
	}{
		{"posts", "DirectusPosts"},
		{"blog_posts", "DirectusBlogPosts"},
		{"directus_files", "DirectusFiles"},
		{"team-members 2", "DirectusTeamMembers2"},
		{"camelCase", "DirectusCamelCase"},
	}
	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeName(tt.collection))
		})
	}
}

func TestLink_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		link Link
		want string
	}{
		{"single", Link{IDs: []string{"a"}}, `"a"`},
		{"many with one id", Link{IDs: []string{"a"}, Many: true}, `["a"]`},
		{"many", Link{IDs: []string{"a", "b"}, Many: true}, `["a","b"]`},
		{"empty many", Link{Many: true}, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.link)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestPublish_NDJSON(t *testing.T) {
	m := blogMesh(t)
	var buf bytes.Buffer
	b := NewNDJSONBuilder(&buf)

	stats, err := Publish(context.Background(), m, b, Options{Logger: quietLogger()})
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Nodes)
	assert.Equal(t, 6, b.Count())
	assert.Equal(t, 1, stats.SkippedJunctions)
	assert.Equal(t, 1, stats.DroppedLinkFields)

	nodes := decodeNodes(t, &buf)
	require.Len(t, nodes, 6)
	assert.NotContains(t, nodes, "posts_tags/10")

	post := nodes["blog_posts/1"]
	require.NotNil(t, post)
	assert.Equal(t, NodeID("blog_posts", "1"), post["id"])
	assert.Equal(t, "DirectusBlogPosts", post["type"])

	wantLinks := map[string]any{
		"author": NodeID("authors", "1"),
		"cover":  NodeID("directus_files", "f1"),
		"tags":   []any{NodeID("tags", "go"), NodeID("tags", "graphs")},
	}
	if diff := cmp.Diff(wantLinks, post["links"]); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]any{"id": float64(1), "title": "Graphs"}, post["contents"])

	author := nodes["authors/1"]
	assert.Equal(t, map[string]any{"posts": []any{NodeID("blog_posts", "1")}}, author["links"])

	draft := nodes["blog_posts/2"]
	assert.NotContains(t, draft, "links")
}

type recordingBuilder struct {
	nodes []GraphNode
	err   error
	after int
}

func (r *recordingBuilder) AddNode(_ context.Context, node GraphNode) error {
	if r.err != nil && len(r.nodes) == r.after {
		return r.err
	}
	r.nodes = append(r.nodes, node)
	return nil
}

func TestPublish_IncludeJunctions(t *testing.T) {
	b := &recordingBuilder{}
	stats, err := Publish(context.Background(), blogMesh(t), b, Options{IncludeJunctions: true, Logger: quietLogger()})
	require.NoError(t, err)

	assert.Equal(t, 8, stats.Nodes)
	assert.Zero(t, stats.SkippedJunctions)
	assert.Zero(t, stats.DroppedLinkFields)

	var order []string
	for _, n := range b.nodes {
		if len(order) == 0 || order[len(order)-1] != n.Collection {
			order = append(order, n.Collection)
		}
	}
	assert.Equal(t, []string{"authors", "blog_posts", "tags", "posts_tags", "directus_files"}, order)

	post := b.nodes[1]
	require.Equal(t, "1", post.PrimaryKey)
	assert.Equal(t, Link{IDs: []string{NodeID("posts_tags", "10"), NodeID("posts_tags", "11")}, Many: true}, post.Links["tag_rows"])
}

func TestPublish_BuilderError(t *testing.T) {
	boom := errors.New("sink full")
	b := &recordingBuilder{err: boom, after: 2}

	stats, err := Publish(context.Background(), blogMesh(t), b, Options{Logger: quietLogger()})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "add node blog_posts/2")
	assert.Equal(t, 2, stats.Nodes)
}

func TestPublish_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &recordingBuilder{}
	_, err := Publish(ctx, blogMesh(t), b, Options{Logger: quietLogger()})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.nodes)
}

func TestPublish_RelationsWithoutField(t *testing.T) {
	m, err := mesh.New(mesh.Input{
		Collections: []mesh.CollectionData{
			{Info: entity.Collection{Name: "authors"}, Records: []mesh.Record{{"id": 1, "": "kept"}}},
			{Info: entity.Collection{Name: "posts"}, Records: []mesh.Record{{"id": 10, "author": 1}}},
			{Info: entity.Collection{Name: "comments"}, Records: []mesh.Record{{"id": 20, "author": 1}, {"id": 21, "author": 1}}},
		},
		Relations: []entity.Relation{
			{SrcCollection: "authors", DestCollection: "posts", DestField: "author", Kind: entity.KindSimple},
			{SrcCollection: "authors", DestCollection: "comments", DestField: "author", Kind: entity.KindSimple},
		},
	}, mesh.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Len(t, m.Node("authors", "1").Relations(), 2)

	b := &recordingBuilder{}
	stats, err := Publish(context.Background(), m, b, Options{Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Links)

	author := b.nodes[0]
	require.Equal(t, "authors", author.Collection)
	want := map[string]Link{
		"posts_author":    {IDs: []string{NodeID("posts", "10")}, Many: true},
		"comments_author": {IDs: []string{NodeID("comments", "20"), NodeID("comments", "21")}, Many: true},
	}
	if diff := cmp.Diff(want, author.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "kept", author.Contents[""])
}

func TestLinkName(t *testing.T) {
	taken := map[string]Link{"author": {}, "posts_author": {}, "posts_author_2": {}}

	tests := []struct {
		name string
		rel  mesh.NodeRelation
		want string
	}{
		{"own field", mesh.NodeRelation{Field: "cover", RelatedCollection: "files"}, "cover"},
		{"own field taken", mesh.NodeRelation{Field: "author", RelatedCollection: "authors"}, "author_2"},
		{"related collection and field", mesh.NodeRelation{RelatedCollection: "comments", RelatedField: "author"}, "comments_author"},
		{"related collection only", mesh.NodeRelation{RelatedCollection: "tags"}, "tags"},
		{"derived name taken twice", mesh.NodeRelation{RelatedCollection: "posts", RelatedField: "author"}, "posts_author_3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, linkName(taken, tt.rel))
		})
	}
}
