// Package graph holds the in-memory pipeline graph: an arena-backed node tree,
// plug connections, the ordered variable table and the document that
// aggregates them for persistence.
package graph
