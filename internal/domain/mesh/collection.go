package mesh

import "content-mesh/internal/domain/entity"

// Collection is a fetched collection indexed by primary key.
type Collection struct {
	info       entity.Collection
	pkField    string
	isJunction bool
	nodes      map[string]*Node
	order      []*Node
}

func newCollection(info entity.Collection, pkField string) *Collection {
	if pkField == "" {
		pkField = entity.DefaultPrimaryKey
	}
	return &Collection{
		info:    info,
		pkField: pkField,
		nodes:   make(map[string]*Node),
	}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.info.Name }

// Info returns the schema declaration of the collection.
func (c *Collection) Info() entity.Collection { return c.info }

// PrimaryKeyField returns the field holding each record's primary key.
func (c *Collection) PrimaryKeyField() string { return c.pkField }

// IsJunction reports whether a junction relation runs through the collection.
func (c *Collection) IsJunction() bool { return c.isJunction }

func (c *Collection) markJunction() { c.isJunction = true }

// Node returns the node with primary key key, or nil.
func (c *Collection) Node(key string) *Node { return c.nodes[key] }

// Nodes returns the nodes in fetch order.
func (c *Collection) Nodes() []*Node { return c.order }

// Len returns the number of nodes.
func (c *Collection) Len() int { return len(c.order) }

// add indexes n; it reports false if the key is already taken.
func (c *Collection) add(n *Node) bool {
	if _, exists := c.nodes[n.key]; exists {
		return false
	}
	c.nodes[n.key] = n
	c.order = append(c.order, n)
	return true
}

// Node is one record of a collection and its resolved relations.
type Node struct {
	key        string
	collection string
	record     Record
	relations  []NodeRelation
}

// Key returns the normalised primary key.
func (n *Node) Key() string { return n.key }

// Collection returns the name of the owning collection.
func (n *Node) Collection() string { return n.collection }

// Record returns the fetched record. It must not be modified.
func (n *Node) Record() Record { return n.record }

// Value returns a field of the record, or nil.
func (n *Node) Value(field string) any { return n.record[field] }

// Relations returns the resolved relations in attachment order.
// The slice must not be modified.
func (n *Node) Relations() []NodeRelation { return n.relations }

// NodeRelation is one resolved edge leaving a node.
type NodeRelation struct {
	Field             string // Field on the node carrying the relation; may be empty
	RelatedField      string // Field on the related side; may be empty
	RelatedCollection string
	Kind              entity.Kind
	Cardinality       Cardinality
	Keys              []string // Primary keys in RelatedCollection
}
