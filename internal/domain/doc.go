// Package domain holds the core entities, the feed event model, and the
// interfaces the transport and storage layers implement.
//
// Events are a tagged union: one struct per kind with a fixed schema,
// serialized into a {"type", "data"} envelope so clients can switch on kind.
package domain
