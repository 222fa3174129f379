package mesh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"content-mesh/internal/domain/entity"
	"content-mesh/internal/observability/metrics"
	"content-mesh/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ErrDuplicateCollection indicates that the input lists a collection twice.
var ErrDuplicateCollection = errors.New("duplicate collection")

// CollectionData is a fully fetched collection.
type CollectionData struct {
	Info       entity.Collection
	PrimaryKey string // Defaults to entity.DefaultPrimaryKey
	Records    []Record
}

// Input is everything a mesh is built from.
type Input struct {
	Collections    []CollectionData
	Relations      []entity.Relation
	FileCollection string
}

// Stats summarises a built mesh.
type Stats struct {
	Collections      int `json:"collections"`
	Junctions        int `json:"junctions"`
	Nodes            int `json:"nodes"`
	Relations        int `json:"relations"`
	Edges            int `json:"edges"`
	SimpleEdges      int `json:"simple_edges"`
	JunctionEdges    int `json:"junction_edges"`
	FileEdges        int `json:"file_edges"`
	SkippedRelations int `json:"skipped_relations"`
	DroppedRecords   int `json:"dropped_records"`
}

// Mesh is the resolved content graph.
type Mesh struct {
	collections    []*Collection
	byName         map[string]*Collection
	relations      []Relation
	fileCollection string
	stats          Stats
}

type config struct {
	logger *slog.Logger
	ctx    context.Context
}

// Option configures New.
type Option func(*config)

// WithLogger sets the logger for build diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithContext parents the build span on ctx.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

// New builds a mesh.
//
// Collections and nodes are created first, then every relation is bound, and
// only then is each node resolved against every relation touching its
// collection, so cross-collection lookups see complete data. Relations naming
// a collection absent from in are skipped. Records without a primary key, or
// repeating one, are dropped.
func New(in Input, opts ...Option) (*Mesh, error) {
	cfg := config{logger: slog.Default(), ctx: context.Background()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	_, span := tracing.StartSpan(cfg.ctx, "mesh.build",
		attribute.Int("mesh.input_collections", len(in.Collections)),
		attribute.Int("mesh.input_relations", len(in.Relations)),
	)
	start := time.Now()

	m := &Mesh{
		byName:         make(map[string]*Collection, len(in.Collections)),
		fileCollection: in.FileCollection,
	}

	for _, data := range in.Collections {
		if err := data.Info.Validate(); err != nil {
			tracing.EndSpan(span, err)
			return nil, err
		}
		if _, exists := m.byName[data.Info.Name]; exists {
			err := fmt.Errorf("%w: %s", ErrDuplicateCollection, data.Info.Name)
			tracing.EndSpan(span, err)
			return nil, err
		}
		c := newCollection(data.Info, data.PrimaryKey)
		for _, rec := range data.Records {
			key, ok := KeyOf(rec[c.pkField], c.pkField)
			if !ok || !c.add(&Node{key: key, collection: c.Name(), record: rec}) {
				m.stats.DroppedRecords++
				cfg.logger.Debug("record dropped",
					slog.String("collection", c.Name()),
					slog.String("primary_key_field", c.pkField),
					slog.Bool("missing_key", !ok))
			}
		}
		m.collections = append(m.collections, c)
		m.byName[c.Name()] = c
	}

	for _, decl := range in.Relations {
		if err := decl.Validate(); err != nil {
			m.stats.SkippedRelations++
			cfg.logger.Warn("relation skipped", slog.String("relation", decl.String()), slog.Any("error", err))
			continue
		}
		rel, err := newRelation(decl, m.Collection)
		if err != nil {
			m.stats.SkippedRelations++
			cfg.logger.Debug("relation skipped", slog.String("relation", decl.String()), slog.String("reason", err.Error()))
			continue
		}
		m.relations = append(m.relations, rel)
	}

	for _, c := range m.collections {
		for _, n := range c.order {
			m.attach(n)
		}
	}

	m.stats.Collections = len(m.collections)
	m.stats.Relations = len(m.relations)
	for _, c := range m.collections {
		m.stats.Nodes += c.Len()
		if c.IsJunction() {
			m.stats.Junctions++
		}
	}

	duration := time.Since(start)
	metrics.RecordMeshBuilt(metrics.MeshSnapshot{
		Collections:   m.stats.Collections,
		Junctions:     m.stats.Junctions,
		Nodes:         m.stats.Nodes,
		SimpleEdges:   m.stats.SimpleEdges,
		JunctionEdges: m.stats.JunctionEdges,
		FileEdges:     m.stats.FileEdges,
	}, duration)

	span.SetAttributes(
		attribute.Int("mesh.nodes", m.stats.Nodes),
		attribute.Int("mesh.edges", m.stats.Edges),
	)
	tracing.EndSpan(span, nil)

	cfg.logger.Info("content mesh built",
		slog.Int("collections", m.stats.Collections),
		slog.Int("junctions", m.stats.Junctions),
		slog.Int("nodes", m.stats.Nodes),
		slog.Int("relations", m.stats.Relations),
		slog.Int("edges", m.stats.Edges),
		slog.Int("skipped_relations", m.stats.SkippedRelations),
		slog.Int("dropped_records", m.stats.DroppedRecords),
		slog.Duration("duration", duration))

	return m, nil
}

// attach resolves n against every relation touching its collection.
func (m *Mesh) attach(n *Node) {
	for _, rel := range m.relations {
		decl := rel.Declaration()
		if decl.SrcCollection == n.collection {
			m.attachResolved(n, decl, decl.SrcField, decl.DestField, decl.DestCollection, rel.Resolve(n, SideSrc))
		}
		if decl.DestCollection == n.collection {
			m.attachResolved(n, decl, decl.DestField, decl.SrcField, decl.SrcCollection, rel.Resolve(n, SideDest))
		}
	}
}

func (m *Mesh) attachResolved(n *Node, decl entity.Relation, field, relatedField, related string, res Resolved) {
	if res.Empty() {
		return
	}
	keys := make([]string, len(res.Nodes))
	for i, r := range res.Nodes {
		keys[i] = r.key
	}
	n.relations = append(n.relations, NodeRelation{
		Field:             field,
		RelatedField:      relatedField,
		RelatedCollection: related,
		Kind:              decl.Kind,
		Cardinality:       res.Cardinality,
		Keys:              keys,
	})

	m.stats.Edges++
	switch decl.Kind {
	case entity.KindSimple:
		m.stats.SimpleEdges++
	case entity.KindJunction:
		m.stats.JunctionEdges++
	case entity.KindFile:
		m.stats.FileEdges++
	}
}

// Collections returns every collection, junctions included, in input order.
func (m *Mesh) Collections() []*Collection { return m.collections }

// Collection returns the named collection, or nil.
func (m *Mesh) Collection(name string) *Collection { return m.byName[name] }

// Node returns the node with the given primary key, or nil.
func (m *Mesh) Node(collection, key string) *Node {
	c := m.byName[collection]
	if c == nil {
		return nil
	}
	return c.Node(key)
}

// Related returns the nodes an edge points at.
func (m *Mesh) Related(r NodeRelation) []*Node {
	c := m.byName[r.RelatedCollection]
	if c == nil {
		return nil
	}
	out := make([]*Node, 0, len(r.Keys))
	for _, k := range r.Keys {
		if n := c.Node(k); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Relations returns the bound relations.
func (m *Mesh) Relations() []Relation { return m.relations }

// FileCollection returns the name of the file collection.
func (m *Mesh) FileCollection() string { return m.fileCollection }

// Stats returns the build summary.
func (m *Mesh) Stats() Stats { return m.stats }
