// Package store defines the key/value abstraction the API server's
// object graph is persisted through, and provides two implementations:
// an in-memory store for tests and an etcd-backed store for
// production. Neither leaks partial state: every read returns either
// a complete, decoded value or a not-found signal.
package store

import (
	"context"
	"fmt"
)

// Store is a typed-by-convention key/value store. Keys are the
// "/pods/<id>", "/nodes/<name>", "/replicasets/<id>" paths from
// spec.md §4.1; values are canonical JSON of the corresponding object.
type Store interface {
	// Get decodes the value at key into out. It returns a *types.Error
	// of kind ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string, out interface{}) error
	// Put encodes value as JSON and writes it at key, creating or
	// replacing it.
	Put(ctx context.Context, key string, value interface{}) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List decodes every value stored under prefix into the slice
	// pointed to by out (a pointer to a slice of the element type).
	List(ctx context.Context, prefix string, out interface{}) error
}

const (
	podPrefix        = "/pods/"
	nodePrefix       = "/nodes/"
	replicaSetPrefix = "/replicasets/"
)

// PodKey returns the store key for a pod id.
func PodKey(id fmt.Stringer) string { return podPrefix + id.String() }

// NodeKey returns the store key for a node name.
func NodeKey(name string) string { return nodePrefix + name }

// ReplicaSetKey returns the store key for a replica set id.
func ReplicaSetKey(id fmt.Stringer) string { return replicaSetPrefix + id.String() }

// PodPrefix is the list prefix for every pod.
func PodPrefix() string { return podPrefix }

// NodePrefix is the list prefix for every node.
func NodePrefix() string { return nodePrefix }

// ReplicaSetPrefix is the list prefix for every replica set.
func ReplicaSetPrefix() string { return replicaSetPrefix }
