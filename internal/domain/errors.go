package domain

import "errors"

var (
	// ErrNotFound means the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidID means the supplied identifier is not a valid UUID.
	ErrInvalidID = errors.New("invalid document id")
	// ErrNotInSession means a pinned document exists but does not belong
	// to the caller's session.
	ErrNotInSession = errors.New("document does not belong to session")
	// ErrNoSessionDocuments means the session has no eligible documents.
	ErrNoSessionDocuments = errors.New("no valid documents in session")
	// ErrFileType rejects an upload with a disallowed extension or type.
	ErrFileType = errors.New("file type not allowed")
	// ErrFileTooLarge rejects an upload over the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmbeddingCount signals an embedder contract violation: the batch
	// returned a different number of vectors than texts.
	ErrEmbeddingCount = errors.New("chunk and embedding counts differ")
)
