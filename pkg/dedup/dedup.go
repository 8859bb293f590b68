// Package dedup tracks what the crawler has already seen: links within one
// query, and image content across a whole batch. The sets are not safe for
// concurrent use; a batch drives its sessions one at a time.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
)

// LinkSet records links already attempted for a query
type LinkSet struct {
	links map[string]struct{}
}

func NewLinkSet() *LinkSet {
	return &LinkSet{links: make(map[string]struct{})}
}

// MarkIfNew records link and reports whether it was not seen before.
// Callers mark before fetching, so a failed link is never retried.
func (s *LinkSet) MarkIfNew(link string) bool {
	if _, ok := s.links[link]; ok {
		return false
	}
	s.links[link] = struct{}{}
	return true
}

// Digest is a 128-bit content fingerprint
type Digest [md5.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Sum fingerprints data
func Sum(data []byte) Digest {
	return md5.Sum(data)
}

// DigestSet records fingerprints of persisted images
type DigestSet struct {
	digests map[Digest]struct{}
}

func NewDigestSet() *DigestSet {
	return &DigestSet{digests: make(map[Digest]struct{})}
}

// Add records d and reports whether it was new
func (s *DigestSet) Add(d Digest) bool {
	if _, ok := s.digests[d]; ok {
		return false
	}
	s.digests[d] = struct{}{}
	return true
}

func (s *DigestSet) Contains(d Digest) bool {
	_, ok := s.digests[d]
	return ok
}

func (s *DigestSet) Len() int {
	return len(s.digests)
}
