package destinations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/castship/castship/internal/common"
	"github.com/castship/castship/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository implements destination storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InTx runs fn against a repository bound to a single transaction. When the
// repository is already transaction-scoped, fn runs on it directly.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	db, ok := r.db.(*sql.DB)
	if !ok {
		return fn(r)
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(NewPostgresRepository(tx))
	})
}

const destinationColumns = `id, podcast_id, mode, public_base_url, encrypted_config,
	legacy_host, legacy_port, legacy_username, legacy_password, legacy_path,
	created_at, updated_at`

// Create inserts a destination row. The podcast_id unique constraint keeps
// one destination per podcast; a violation maps to ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, d *Destination) error {
	query := `
		INSERT INTO destinations (id, podcast_id, mode, public_base_url, encrypted_config)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.PodcastID, string(d.Mode), d.PublicBaseURL, d.EncryptedConfig)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Destination, error) {
	query := `SELECT ` + destinationColumns + ` FROM destinations WHERE id=$1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByPodcast(ctx context.Context, podcastID string) (*Destination, error) {
	query := `SELECT ` + destinationColumns + ` FROM destinations WHERE podcast_id=$1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, podcastID))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Destination, error) {
	var d Destination
	var mode string
	err := row.Scan(
		&d.ID, &d.PodcastID, &mode, &d.PublicBaseURL, &d.EncryptedConfig,
		&d.LegacyHost, &d.LegacyPort, &d.LegacyUsername, &d.LegacyPassword, &d.LegacyPath,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	d.Mode = Mode(mode)
	return &d, nil
}

// UpdateConfig rewrites the mode, public base URL and encrypted blob of one
// destination. Returns ErrorNotFound when the row does not exist.
func (r *PostgresRepository) UpdateConfig(ctx context.Context, id string, mode Mode, publicBaseURL, encryptedConfig string) error {
	query := `
		UPDATE destinations
		SET mode=$2, public_base_url=$3, encrypted_config=$4, updated_at=now()
		WHERE id=$1;
	`
	res, err := r.db.ExecContext(ctx, query, id, string(mode), publicBaseURL, encryptedConfig)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.oneRow(res)
}

// RedactLegacy stores the re-encrypted blob and blanks the plaintext legacy
// columns. Running it on an already-migrated row affects zero rows and
// returns ErrorNotFound, which callers treat as "nothing to do".
func (r *PostgresRepository) RedactLegacy(ctx context.Context, id string, encryptedConfig string) error {
	query := `
		UPDATE destinations
		SET encrypted_config=$2,
			legacy_host='', legacy_port=0, legacy_username='', legacy_password='', legacy_path='',
			updated_at=now()
		WHERE id=$1 AND encrypted_config='';
	`
	res, err := r.db.ExecContext(ctx, query, id, encryptedConfig)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.oneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM destinations WHERE id=$1;`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.oneRow(res)
}

func (r *PostgresRepository) oneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
