package backup

import "context"

// ChangeTracker is the external change-tracking interface consumed by
// PageReader's PTRACK path: a synchronous fetch of one page from the
// database engine's live shared buffer. A failure is always fatal.
//
// ok == false means the block was truncated away by the time the engine
// serviced the request. A returned page whose length is not BlockSize is a
// caller bug and PageReader treats it as fatal.
type ChangeTracker interface {
	GetBlock(ctx context.Context, dbOID, tablespaceOID, relOID, absoluteBlock uint32, trackerVersion int, schema string) (pg []byte, ok bool, err error)
}

// RemoteErrorCode classifies the outcome of a RemoteTransport call.
type RemoteErrorCode int

const (
	// RemoteOK means the transfer completed without error.
	RemoteOK RemoteErrorCode = iota
	// RemoteError means the remote agent reported a generic failure.
	RemoteError
	// RemotePageCorruption means the remote agent found a page it could
	// not validate even after retry.
	RemotePageCorruption
	// RemoteWriteFailed means the local sink rejected a write.
	RemoteWriteFailed
)

// RemoteTransport is the block-level reader/writer that runs on the
// database host, performing the entire backup-file loop remotely. The core
// never implements this interface, only calls it; it is specified here for
// contract completeness, per §6.
type RemoteTransport interface {
	CopyFile(ctx context.Context, file *FileRecord) (blocksRead uint64, code RemoteErrorCode, errBlock uint32, err error)
}
