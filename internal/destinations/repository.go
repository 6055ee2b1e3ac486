package destinations

import "context"

// Repository persists destination rows. Implementations return
// common.ErrorNotFound / common.ErrorAlreadyExists as appropriate.
type Repository interface {
	Create(ctx context.Context, d *Destination) error
	GetByID(ctx context.Context, id string) (*Destination, error)
	GetByPodcast(ctx context.Context, podcastID string) (*Destination, error)
	// UpdateConfig rewrites the mode, public base URL and encrypted blob.
	UpdateConfig(ctx context.Context, id string, mode Mode, publicBaseURL, encryptedConfig string) error
	// RedactLegacy stores the freshly encrypted blob and blanks the
	// plaintext legacy columns in one transaction.
	RedactLegacy(ctx context.Context, id string, encryptedConfig string) error
	Delete(ctx context.Context, id string) error
}

// TxRunner is implemented by repositories that can scope a sequence of calls
// to one database transaction. Callers doing read-modify-write should use it
// when available.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Repository) error) error
}
