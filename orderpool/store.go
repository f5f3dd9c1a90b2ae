package orderpool

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/astriaorg/auctioneer/bundle"
)

// InsertAction describes the outcome of Store.InsertOrReplace.
type InsertAction int

const (
	// Inserted means no prior bundle with this UUID existed.
	Inserted InsertAction = iota
	// Replaced means a strictly older bundle was overwritten.
	Replaced
	// NotReplaced means the stored bundle has an equal or newer timestamp;
	// nothing was mutated.
	NotReplaced
)

func (a InsertAction) String() string {
	switch a {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	case NotReplaced:
		return "not replaced"
	default:
		return "unknown"
	}
}

// RemoveAction describes the outcome of Store.Remove and Store.Evict.
type RemoveAction int

const (
	// Removed means a bundle was deleted.
	Removed RemoveAction = iota
	// NotFound means no bundle was stored under the UUID.
	NotFound
	// Aborted means the stored bundle's timestamp forbade the removal;
	// nothing was mutated.
	Aborted
)

func (a RemoveAction) String() string {
	switch a {
	case Removed:
		return "removed"
	case NotFound:
		return "not found"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// InsertResult is the outcome of an insert-or-replace. Prior is the replaced
// bundle for Replaced, the in-storage bundle for NotReplaced, and nil for
// Inserted.
type InsertResult struct {
	Action InsertAction
	Prior  *bundle.Bundle
}

// RemoveResult is the outcome of a removal. Bundle is the removed bundle for
// Removed, the in-storage bundle for Aborted, and nil for NotFound.
type RemoveResult struct {
	Action RemoveAction
	Bundle *bundle.Bundle
}

// Store maps bundle UUIDs to the latest accepted bundle, with a reverse index
// from bundle hash to UUID. It is owned by the orderpool supervisor and must
// not be shared across goroutines.
type Store struct {
	byUUID map[uuid.UUID]*bundle.Bundle
	byHash map[common.Hash]uuid.UUID
}

// NewStore creates an empty bundle store.
func NewStore() *Store {
	return &Store{
		byUUID: make(map[uuid.UUID]*bundle.Bundle),
		byHash: make(map[common.Hash]uuid.UUID),
	}
}

// InsertOrReplace stores b unless a bundle with the same UUID and an equal or
// newer timestamp is already present. Equal timestamps do not overwrite, so
// duplicate submissions cannot flap the store.
func (s *Store) InsertOrReplace(b *bundle.Bundle) InsertResult {
	prior, ok := s.byUUID[b.UUID()]
	if !ok {
		s.byUUID[b.UUID()] = b
		s.byHash[b.Hash()] = b.UUID()
		return InsertResult{Action: Inserted}
	}
	if !prior.Timestamp().Before(b.Timestamp()) {
		return InsertResult{Action: NotReplaced, Prior: prior}
	}
	delete(s.byHash, prior.Hash())
	s.byUUID[b.UUID()] = b
	s.byHash[b.Hash()] = b.UUID()
	return InsertResult{Action: Replaced, Prior: prior}
}

// Remove deletes the bundle stored under id if its timestamp is strictly
// older than requestTimestamp. A cancellation that raced a replacement does
// not delete the newer bundle.
func (s *Store) Remove(id uuid.UUID, requestTimestamp time.Time) RemoveResult {
	prior, ok := s.byUUID[id]
	if !ok {
		return RemoveResult{Action: NotFound}
	}
	if !prior.Timestamp().Before(requestTimestamp) {
		return RemoveResult{Action: Aborted, Bundle: prior}
	}
	s.deleteBundle(id, prior)
	return RemoveResult{Action: Removed, Bundle: prior}
}

// Evict deletes the bundle stored under id unless a strictly newer bundle has
// replaced it since timestamp was observed. Unlike Remove, a bundle whose
// timestamp equals the reported one is deleted: eviction targets the exact
// bundle that won an auction.
func (s *Store) Evict(id uuid.UUID, timestamp time.Time) RemoveResult {
	prior, ok := s.byUUID[id]
	if !ok {
		return RemoveResult{Action: NotFound}
	}
	if prior.Timestamp().After(timestamp) {
		return RemoveResult{Action: Aborted, Bundle: prior}
	}
	s.deleteBundle(id, prior)
	return RemoveResult{Action: Removed, Bundle: prior}
}

func (s *Store) deleteBundle(id uuid.UUID, b *bundle.Bundle) {
	delete(s.byUUID, id)
	delete(s.byHash, b.Hash())
}

// UUIDByHash resolves a bundle content digest to the UUID it is stored under.
func (s *Store) UUIDByHash(h common.Hash) (uuid.UUID, bool) {
	id, ok := s.byHash[h]
	return id, ok
}

// Snapshot returns the stored bundles at the time of the call. The slice
// belongs to the caller; the bundles themselves are shared and immutable.
func (s *Store) Snapshot() []*bundle.Bundle {
	bundles := make([]*bundle.Bundle, 0, len(s.byUUID))
	for _, b := range s.byUUID {
		bundles = append(bundles, b)
	}
	return bundles
}

// Len reports the number of stored bundles.
func (s *Store) Len() int { return len(s.byUUID) }
