package ports

import "github.com/ghalamif/PowerProbe/internal/domain"

type WALEntryID uint64

// WAL keeps emitted samples durable until every sink has accepted them.
type WAL interface {
	Append(s *domain.Sample) (WALEntryID, error)
	Iterate(from WALEntryID, fn func(id WALEntryID, s *domain.Sample) error) error
	Commit(upto WALEntryID) error
	TruncateCommitted() error
	Stats() WALStats
	Close() error
}

type WALStats struct {
	OldestUncommitted WALEntryID
	LatestAppended    WALEntryID
	SizeBytes         int64
}
