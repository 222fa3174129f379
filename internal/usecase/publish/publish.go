package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"runtime"
	"sync"

	"content-mesh/internal/domain/mesh"
	"content-mesh/internal/observability/logging"
	"content-mesh/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// NodeBuilder receives published nodes. Publish calls AddNode from a single
// goroutine, collection by collection in mesh order.
type NodeBuilder interface {
	AddNode(ctx context.Context, node GraphNode) error
}

// Options controls publication.
type Options struct {
	// IncludeJunctions publishes junction collections and links into them.
	IncludeJunctions bool
	Logger           *slog.Logger
}

// Stats summarises a publication.
type Stats struct {
	Nodes             int `json:"nodes"`
	Links             int `json:"links"`
	SkippedJunctions  int `json:"skipped_junctions"`
	DroppedLinkFields int `json:"dropped_link_fields"`
}

// Publish converts every node of m and hands it to b.
//
// Contents hold the record without the fields that became links. Nodes are
// converted concurrently per collection and delivered in mesh order.
func Publish(ctx context.Context, m *mesh.Mesh, b NodeBuilder, opts Options) (Stats, error) {
	logger := logging.OrDefault(opts.Logger)
	ctx, span := tracing.StartSpan(ctx, "publish",
		attribute.Bool("publish.include_junctions", opts.IncludeJunctions))

	var stats Stats
	var published []*mesh.Collection
	for _, c := range m.Collections() {
		if c.IsJunction() && !opts.IncludeJunctions {
			stats.SkippedJunctions++
			continue
		}
		published = append(published, c)
	}

	converted := make([][]GraphNode, len(published))
	counts := make([]Stats, len(published))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range published {
		g.Go(func() error {
			nodes := make([]GraphNode, 0, c.Len())
			for _, n := range c.Nodes() {
				if err := gctx.Err(); err != nil {
					return err
				}
				node, dropped := convert(m, n, opts.IncludeJunctions)
				counts[i].Links += len(node.Links)
				counts[i].DroppedLinkFields += dropped
				nodes = append(nodes, node)
			}
			converted[i] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.EndSpan(span, err)
		return stats, err
	}

	for i, nodes := range converted {
		for _, node := range nodes {
			if err := ctx.Err(); err != nil {
				tracing.EndSpan(span, err)
				return stats, err
			}
			if err := b.AddNode(ctx, node); err != nil {
				err = fmt.Errorf("add node %s/%s: %w", node.Collection, node.PrimaryKey, err)
				tracing.EndSpan(span, err)
				return stats, err
			}
			stats.Nodes++
		}
		stats.Links += counts[i].Links
		stats.DroppedLinkFields += counts[i].DroppedLinkFields
	}

	span.SetAttributes(
		attribute.Int("publish.nodes", stats.Nodes),
		attribute.Int("publish.links", stats.Links),
	)
	tracing.EndSpan(span, nil)

	logger.Info("content mesh published",
		slog.Int("nodes", stats.Nodes),
		slog.Int("links", stats.Links),
		slog.Int("skipped_junctions", stats.SkippedJunctions))
	return stats, nil
}

// convert builds the GraphNode of n. It returns the number of link fields
// dropped because they point into unpublished junction collections.
func convert(m *mesh.Mesh, n *mesh.Node, includeJunctions bool) (GraphNode, int) {
	contents := maps.Clone(map[string]any(n.Record()))
	if contents == nil {
		contents = map[string]any{}
	}

	node := GraphNode{
		ID:         NodeID(n.Collection(), n.Key()),
		Type:       TypeName(n.Collection()),
		Collection: n.Collection(),
		PrimaryKey: n.Key(),
		Contents:   contents,
	}

	dropped := 0
	for _, r := range n.Relations() {
		if r.Field != "" {
			delete(contents, r.Field)
		}
		if rc := m.Collection(r.RelatedCollection); rc != nil && rc.IsJunction() && !includeJunctions {
			dropped++
			continue
		}
		ids := make([]string, len(r.Keys))
		for i, k := range r.Keys {
			ids[i] = NodeID(r.RelatedCollection, k)
		}
		if node.Links == nil {
			node.Links = make(map[string]Link)
		}
		node.Links[linkName(node.Links, r)] = Link{IDs: ids, Many: r.Cardinality == mesh.CardinalityMany}
	}
	return node, dropped
}

// linkName returns the link field for r. Relations without a field on this
// side are named after the related collection and its field. A name already
// taken gets a numeric suffix.
func linkName(taken map[string]Link, r mesh.NodeRelation) string {
	name := r.Field
	if name == "" {
		name = r.RelatedCollection
		if r.RelatedField != "" {
			name += "_" + r.RelatedField
		}
	}
	if _, ok := taken[name]; !ok {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// NDJSONBuilder writes one JSON object per node.
type NDJSONBuilder struct {
	mu    sync.Mutex
	enc   *json.Encoder
	count int
}

// NewNDJSONBuilder creates a builder writing to w.
func NewNDJSONBuilder(w io.Writer) *NDJSONBuilder {
	return &NDJSONBuilder{enc: json.NewEncoder(w)}
}

// AddNode implements NodeBuilder.
func (b *NDJSONBuilder) AddNode(_ context.Context, node GraphNode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enc.Encode(node); err != nil {
		return err
	}
	b.count++
	return nil
}

// Count returns the number of nodes written.
func (b *NDJSONBuilder) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
