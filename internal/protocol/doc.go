// Package protocol owns the wire contract shared by both client dialects.
//
// Ownership boundary:
// - request model (train/query variants)
// - protocol mode detection from the first two bytes of a connection
// - error taxonomy and its wire text
//
// Dialect codecs live in the framed and legacy subpackages; length
// prefixing lives in frame.
package protocol
