package cache

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// StatementID identifies a statement by its content. Two statements with
// the same text have the same id wherever they appear in a document, so
// edits elsewhere in the buffer do not invalidate cached artifacts.
//
// Ids derived with Child always belong to the root they were derived from:
// a child of a child is another child of the same root, and evicting the
// root evicts all of them.
type StatementID struct {
	root   xxh3.Uint128
	child  xxh3.Uint128
	nested bool
}

// NewStatementID returns the root id for statement text.
func NewStatementID(text string) StatementID {
	return StatementID{root: xxh3.HashString128(text)}
}

// Child derives an id for a sub-statement, such as one statement of a SQL
// function body. The discriminator must be stable for the same
// sub-statement across passes.
func (id StatementID) Child(discriminator string) StatementID {
	base := id.root
	if id.nested {
		base = id.child
	}
	buf := make([]byte, 16, 16+len(discriminator))
	binary.BigEndian.PutUint64(buf[:8], base.Hi)
	binary.BigEndian.PutUint64(buf[8:], base.Lo)
	buf = append(buf, discriminator...)
	return StatementID{root: id.root, child: xxh3.Hash128(buf), nested: true}
}

// IsRoot reports whether id was not derived from another id.
func (id StatementID) IsRoot() bool {
	return !id.nested
}

// Root returns the top-level id that id was derived from, or id itself.
func (id StatementID) Root() StatementID {
	return StatementID{root: id.root}
}

// Parent returns the id id was derived from. For a root it returns id.
func (id StatementID) Parent() StatementID {
	return id.Root()
}

func (id StatementID) String() string {
	s := hashHex(id.root)
	if id.nested {
		s += "/" + hashHex(id.child)
	}
	return s
}

// shardKey picks the shard for id. Children share their root's shard.
func (id StatementID) shardKey() uint64 {
	return id.root.Lo
}

func hashHex(h xxh3.Uint128) string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], h.Hi)
	binary.BigEndian.PutUint64(b[8:], h.Lo)
	return hex.EncodeToString(b[:])
}
