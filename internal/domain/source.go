package domain

import "context"

// DocumentSource fetches document bytes by URL or storage key.
type DocumentSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// TextExtractor turns document bytes (PDF) into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, document []byte) (string, error)
}
