// Package ppoprf implements the puncturable partially-oblivious pseudorandom
// function the randomness oracle evaluates: a keyed function over Ristretto
// group elements, tagged by an 8-bit epoch, where revoking (puncturing) an
// epoch makes every future evaluation under that epoch fail even though the
// rest of the key remains usable.
//
// The key schedule is a GGM-style binary tree over the epoch domain. Group
// elements are Ristretto255 points (github.com/gtank/ristretto255), the
// prime-order quotient of edwards25519 the wire format calls for: an
// ordinary Edwards decode accepts the full cofactor-8 group and uses a
// different canonical-encoding check, so it rejects (or worse, silently
// mis-decodes) genuine Ristretto-encoded client points.
package ppoprf

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/gtank/ristretto255"
	"golang.org/x/crypto/hkdf"
)

// PointSize is the wire size of an encoded group element.
const PointSize = 32

var (
	// ErrEpochPunctured is returned by Evaluate when the requested epoch
	// has already been punctured (or was never part of the server's range).
	ErrEpochPunctured = errors.New("ppoprf: epoch has been punctured")

	// ErrInvalidPoint is returned when a point fails to decode.
	ErrInvalidPoint = errors.New("ppoprf: invalid point encoding")
)

// Server holds the puncturable key schedule backing the randomness oracle.
// It is not safe for concurrent use on its own: Evaluate is read-only and
// may run concurrently with other Evaluate calls, but Puncture mutates the
// key schedule and must be excluded from concurrent Evaluate/Puncture calls
// by the caller (the state cell's reader/writer lock provides this).
type Server struct {
	tree *ggmTree
}

// New creates a freshly-keyed Server. epochs must be the closed,
// contiguous range of epoch tags the caller intends to serve
// (first_epoch through last_epoch inclusive); every tag in it starts out
// active, and every tag outside it starts out punctured.
func New(epochs []uint8) (*Server, error) {
	if len(epochs) == 0 {
		return nil, errors.New("ppoprf: epoch range must not be empty")
	}
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("ppoprf: generating root key: %w", err)
	}
	s := &Server{tree: newGGMTree(seed)}
	var active [256]bool
	for _, e := range epochs {
		active[e] = true
	}
	for e := 0; e < 256; e++ {
		if !active[e] {
			if err := s.tree.puncture(uint8(e)); err != nil {
				return nil, fmt.Errorf("ppoprf: puncturing out-of-range epoch %d: %w", e, err)
			}
		}
	}
	return s, nil
}

// Evaluate computes the PPOPRF output for point under the given epoch.
// Fails with ErrEpochPunctured if epoch is no longer active.
func (s *Server) Evaluate(point *ristretto255.Element, epoch uint8) (*ristretto255.Element, error) {
	leaf, err := s.tree.leafKey(epoch)
	if err != nil {
		return nil, err
	}
	scalar := deriveScalar(leaf[:], "star-randsrv/evaluate")
	return ristretto255.NewElement().ScalarMult(scalar, point), nil
}

// Puncture irrevocably removes epoch from the active set. Further
// evaluations under epoch will fail with ErrEpochPunctured.
func (s *Server) Puncture(epoch uint8) error {
	return s.tree.puncture(epoch)
}

// PublicKey returns the encoded public commitment to the server's current
// key schedule. It changes every time Puncture succeeds, and decodes back
// into a valid group element, but is not used by this service to verify
// evaluations.
func (s *Server) PublicKey() []byte {
	commitment := s.tree.commitment()
	scalar := deriveScalar(commitment[:], "star-randsrv/publickey")
	point := ristretto255.NewElement().ScalarBaseMult(scalar)
	return point.Encode(nil)
}

// DecodePoint decodes a 32-byte Ristretto255 group element.
func DecodePoint(b []byte) (*ristretto255.Element, error) {
	if len(b) != PointSize {
		return nil, ErrInvalidPoint
	}
	p := ristretto255.NewElement()
	if err := p.Decode(b); err != nil {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// EncodePoint returns the 32-byte compressed encoding of p.
func EncodePoint(p *ristretto255.Element) []byte {
	return p.Encode(nil)
}

// deriveScalar maps arbitrary key material into a uniformly-distributed
// scalar via SHA-512, matching the wide-reduction technique ristretto255
// implementations commonly use to turn hash output into group scalars.
func deriveScalar(key []byte, domain string) *ristretto255.Scalar {
	h := sha512.New()
	h.Write([]byte(domain))
	h.Write(key)
	wide := h.Sum(nil)
	// FromUniformBytes panics unless given exactly 64 bytes; wide is
	// always a full SHA-512 digest, so that never happens here.
	return ristretto255.NewScalar().FromUniformBytes(wide)
}

// ggmNode is a single node in the frontier covering the still-active part
// of the epoch domain: everything sharing the top `depth` bits of prefix
// is derivable from key.
type ggmNode struct {
	depth  int
	prefix uint8
	key    [32]byte
}

func (n ggmNode) covers(epoch uint8) bool {
	if n.depth == 0 {
		return true
	}
	mask := uint8(0xFF << (8 - n.depth))
	return n.prefix&mask == epoch&mask
}

// ggmTree is a GGM-style puncturable PRF over the 8-bit epoch domain: a
// binary tree of depth 8 where each node's key derives its two children's
// keys via HKDF. Puncturing a leaf discards the single root-to-leaf path
// while keeping every sibling node along that path, so every other leaf
// stays derivable but the punctured one provably isn't (short of breaking
// the PRG HKDF is built on).
type ggmTree struct {
	frontier []ggmNode
}

func newGGMTree(rootKey [32]byte) *ggmTree {
	return &ggmTree{frontier: []ggmNode{{depth: 0, prefix: 0, key: rootKey}}}
}

// expand derives a node's two children via HKDF (RFC 5869, extract then
// expand, no salt), keyed on the parent node's key with its depth and side
// in the info string, so that left and right children at every level of
// the tree draw from independent HKDF info strings.
func expand(n ggmNode) (left, right ggmNode) {
	lk := hkdfChild(n.key[:], n.depth, 'L')
	rk := hkdfChild(n.key[:], n.depth, 'R')
	childDepth := n.depth + 1
	leftPrefix := n.prefix
	rightPrefix := n.prefix | (1 << (8 - childDepth))
	return ggmNode{depth: childDepth, prefix: leftPrefix, key: lk},
		ggmNode{depth: childDepth, prefix: rightPrefix, key: rk}
}

func hkdfChild(key []byte, depth int, side byte) [32]byte {
	info := []byte{byte(depth), side}
	r := hkdf.New(sha256.New, key, nil, info)
	var out [32]byte
	if _, err := io.ReadFull(r, out[:]); err != nil {
		// hkdf.New's reader only errs past the RFC 5869 output-length limit
		// (255*hash size); a single 32-byte read never approaches it.
		panic(fmt.Sprintf("ppoprf: deriving child key: %v", err))
	}
	return out
}

// leafKey derives the key for epoch without mutating the frontier.
func (t *ggmTree) leafKey(epoch uint8) ([32]byte, error) {
	idx, node, ok := t.findCovering(epoch)
	_ = idx
	if !ok {
		return [32]byte{}, ErrEpochPunctured
	}
	for node.depth < 8 {
		left, right := expand(node)
		if left.covers(epoch) {
			node = left
		} else {
			node = right
		}
	}
	return node.key, nil
}

// puncture removes epoch from the frontier, expanding its covering node as
// needed and keeping every sibling along the path.
func (t *ggmTree) puncture(epoch uint8) error {
	idx, node, ok := t.findCovering(epoch)
	if !ok {
		return ErrEpochPunctured
	}

	siblings := make([]ggmNode, 0, 8)
	for node.depth < 8 {
		left, right := expand(node)
		if left.covers(epoch) {
			siblings = append(siblings, right)
			node = left
		} else {
			siblings = append(siblings, left)
			node = right
		}
	}
	// node is now the leaf for epoch; drop it, keep every sibling.
	t.frontier = append(t.frontier[:idx], t.frontier[idx+1:]...)
	t.frontier = append(t.frontier, siblings...)
	return nil
}

func (t *ggmTree) findCovering(epoch uint8) (int, ggmNode, bool) {
	for i, n := range t.frontier {
		if n.covers(epoch) {
			return i, n, true
		}
	}
	return 0, ggmNode{}, false
}

// commitment derives a stable digest of the current frontier for PublicKey.
func (t *ggmTree) commitment() [32]byte {
	sorted := make([]ggmNode, len(t.frontier))
	copy(sorted, t.frontier)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].depth != sorted[j].depth {
			return sorted[i].depth < sorted[j].depth
		}
		return sorted[i].prefix < sorted[j].prefix
	})

	h := sha256.New()
	for _, n := range sorted {
		h.Write([]byte{byte(n.depth), n.prefix})
		h.Write(n.key[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
