package storage

import "context"

// ObjectStorage is the collaborator that keeps ad images and issues
// publicly fetchable URLs for them
type ObjectStorage interface {
	// Upload stores a named blob and returns its storage path
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// PublicURL resolves a storage path to a public URL
	PublicURL(path string) string
	// Remove deletes a stored object by path
	Remove(ctx context.Context, path string) error
}
