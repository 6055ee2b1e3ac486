// Package service wires the credential store, the crypto layer and the
// protocol backends into the operations the CLI exposes.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/castship/castship/internal/common"
	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/deploy/ftpx"
	"github.com/castship/castship/internal/deploy/ipfsx"
	"github.com/castship/castship/internal/deploy/s3x"
	"github.com/castship/castship/internal/deploy/sftpx"
	"github.com/castship/castship/internal/deploy/smbx"
	"github.com/castship/castship/internal/deploy/webdavx"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

// DestinationService owns one podcast's deployment destination: its
// encrypted connection blob, its lifecycle, and the deploys against it.
type DestinationService struct {
	repo  destinations.Repository
	codec *destinations.Codec
	log   logging.Logger
}

func NewDestinationService(repo destinations.Repository, codec *destinations.Codec, log logging.Logger) *DestinationService {
	return &DestinationService{repo: repo, codec: codec, log: log}
}

// backendFor is a seam for tests.
var backendFor = newBackend

func newBackend(cfg destinations.ModeConfig, log logging.Logger) (deploy.Backend, error) {
	switch c := cfg.(type) {
	case *destinations.S3Config:
		return s3x.New(*c, log), nil
	case *destinations.FTPConfig:
		return ftpx.New(*c, log), nil
	case *destinations.SFTPConfig:
		return sftpx.New(*c, log), nil
	case *destinations.WebDAVConfig:
		return webdavx.New(*c, log), nil
	case *destinations.IPFSConfig:
		return ipfsx.New(*c, log), nil
	case *destinations.SMBConfig:
		return smbx.New(*c, log), nil
	default:
		return nil, fmt.Errorf("%w: %T", common.ErrUnknownMode, cfg)
	}
}

// Create registers the destination for a podcast. Each podcast has at most
// one; a second create returns common.ErrorAlreadyExists.
func (s *DestinationService) Create(ctx context.Context, podcastID string, mode destinations.Mode, publicBaseURL string, fields map[string]any) (*destinations.Destination, error) {
	token, err := s.codec.BuildEncoded(mode, fields)
	if err != nil {
		return nil, err
	}

	d := &destinations.Destination{
		ID:              uuid.NewString(),
		PodcastID:       podcastID,
		Mode:            mode,
		PublicBaseURL:   publicBaseURL,
		EncryptedConfig: token,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "destination created", "id", d.ID, "podcast", podcastID, "mode", mode)
	return d, nil
}

// Get loads a destination by id, migrating legacy plaintext rows on the way.
func (s *DestinationService) Get(ctx context.Context, id string) (*destinations.Destination, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.migrateLegacy(ctx, s.repo, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetByPodcast loads a podcast's destination, migrating legacy rows.
func (s *DestinationService) GetByPodcast(ctx context.Context, podcastID string) (*destinations.Destination, error) {
	d, err := s.repo.GetByPodcast(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	if err := s.migrateLegacy(ctx, s.repo, d); err != nil {
		return nil, err
	}
	return d, nil
}

// withRepo scopes fn to one transaction when the repository supports it, so
// read-modify-write sequences cannot interleave with concurrent updates.
func (s *DestinationService) withRepo(ctx context.Context, fn func(destinations.Repository) error) error {
	if tr, ok := s.repo.(destinations.TxRunner); ok {
		return tr.InTx(ctx, fn)
	}
	return fn(s.repo)
}

// Update overlays partial config fields onto the stored blob and re-encrypts.
// newMode switches the protocol (dropping fields the new mode does not know);
// empty newMode keeps the current one. Empty publicBaseURL keeps the stored
// value.
func (s *DestinationService) Update(ctx context.Context, id string, newMode, publicBaseURL string, fields map[string]any) (*destinations.Destination, error) {
	var d *destinations.Destination
	err := s.withRepo(ctx, func(repo destinations.Repository) error {
		var err error
		d, err = repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.migrateLegacy(ctx, repo, d); err != nil {
			return err
		}

		mode := d.Mode
		if newMode != "" {
			if mode, err = destinations.ParseMode(newMode); err != nil {
				return err
			}
		}
		if publicBaseURL == "" {
			publicBaseURL = d.PublicBaseURL
		}

		token, err := s.codec.MergeAndEncode(mode, d.EncryptedConfig, fields)
		if err != nil {
			return err
		}
		if err := repo.UpdateConfig(ctx, id, mode, publicBaseURL, token); err != nil {
			return err
		}

		d.Mode = mode
		d.PublicBaseURL = publicBaseURL
		d.EncryptedConfig = token
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "destination updated", "id", id, "mode", d.Mode)
	return d, nil
}

func (s *DestinationService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Test opens a session against the destination and performs the cheapest
// operation that proves it is reachable. nil means the destination works.
func (s *DestinationService) Test(ctx context.Context, id string) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	backend, err := s.backend(d)
	if err != nil {
		return err
	}
	return backend.TestAccess(ctx)
}

// Deploy publishes the artifact set to the podcast's destination. It never
// returns an error: every failure, including a panicking backend, lands in
// Result.Errors so one bad destination cannot take down a publishing batch.
func (s *DestinationService) Deploy(ctx context.Context, podcastID string, in *deploy.Input) *deploy.Result {
	res := &deploy.Result{}
	defer func() {
		if r := recover(); r != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("panic: %v", r))
		}
	}()

	d, err := s.GetByPodcast(ctx, podcastID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("destination: %v", err))
		return res
	}

	backend, err := s.backend(d)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("configuration: %v", err))
		return res
	}

	s.log.Info(ctx, "deploying", "podcast", podcastID, "destination", d.ID, "mode", d.Mode)
	out, err := backend.Deploy(ctx, in)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("session: %v", err))
		return res
	}

	*res = *out
	if res.PublicURL == "" {
		res.PublicURL = d.PublicBaseURL
	}
	if res.Failed() {
		s.log.Error(ctx, "deploy failed", "podcast", podcastID, "errors", len(res.Errors))
	} else {
		s.log.Info(ctx, "deploy finished",
			"podcast", podcastID, "uploaded", res.Uploaded, "skipped", res.Skipped, "errors", len(res.Errors))
	}
	return res
}

// backend decrypts the connection blob just long enough to construct the
// protocol adapter; the plaintext config is not retained on the service.
func (s *DestinationService) backend(d *destinations.Destination) (deploy.Backend, error) {
	cfg, err := s.codec.DecodeFor(d.Mode, d)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return backendFor(cfg, s.log)
}

// migrateLegacy re-encrypts plaintext legacy columns the first time such a
// row is read, then blanks them. Concurrent readers race on the guarded
// update; the loser reloads the migrated row.
func (s *DestinationService) migrateLegacy(ctx context.Context, repo destinations.Repository, d *destinations.Destination) error {
	if !d.NeedsLegacyMigration() {
		return nil
	}

	token, err := s.codec.EncodeLegacy(d)
	if err != nil {
		return err
	}

	if err := repo.RedactLegacy(ctx, d.ID, token); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fresh, ferr := repo.GetByID(ctx, d.ID)
			if ferr != nil {
				return ferr
			}
			*d = *fresh
			return nil
		}
		return err
	}

	d.EncryptedConfig = token
	d.LegacyHost = ""
	d.LegacyPort = 0
	d.LegacyUsername = ""
	d.LegacyPassword = ""
	d.LegacyPath = ""
	s.log.Warn(ctx, "legacy plaintext config re-encrypted", "id", d.ID)
	return nil
}
