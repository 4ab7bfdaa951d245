// Package keyhash provides the stable key hash the epoch map uses: a fast,
// non-cryptographic hash (xxhash) over an opaque byte-slice flow key, any
// stable 32/64-bit hash being an acceptable substitute for it.
package keyhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Kind tags whether a Key identifies a stream or a whole flow. The tag
// participates in the hash so stream and flow identities never collide in
// one map even when a stream's flow_key coincides with another flow's key.
type Kind uint8

const (
	KindStream Kind = iota
	KindFlow
)

// Key is the tagged identity hashed into the epoch map: (flow_key, stream_id,
// kind). flow_key is a fixed KeySize-byte string; stream_id is 0 for flow
// identities.
type Key struct {
	FlowKey string // exactly KeySize bytes
	StreamID uint8
	Kind Kind
}

// Hash returns a stable 64-bit digest of k, tag included. KeySize is a
// caller-side convention, not a constraint Hash may assume, so the buffer
// is sized to the actual FlowKey length rather than a fixed bound.
func Hash(k Key) uint64 {
	buf := make([]byte, len(k.FlowKey)+2)
	n := copy(buf, k.FlowKey)
	buf[n] = k.StreamID
	buf[n+1] = byte(k.Kind)
	h := xxhash.New()
	_, _ = h.Write(buf)
	var lenPrefix [8]byte
	binary.LittleEndian.PutUint64(lenPrefix[:], uint64(len(k.FlowKey)))
	_, _ = h.Write(lenPrefix[:])
	return h.Sum64()
}

// FlowOf returns the flow identity sharing k's flow_key (stream_id zeroed).
func FlowOf(k Key) Key {
	return Key{FlowKey: k.FlowKey, StreamID: 0, Kind: KindFlow}
}
