// Package system wires one decoder process: the feature-function registry,
// the weight vector and the shared resources the functions load against.
package system

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/tracing"
)

// System holds everything scoring needs once setup has finished.
type System struct {
	Config    *config.Config
	Registry  *registry.Registry
	Weights   scores.Weights
	Resources *ff.Resources

	logger *slog.Logger
	ready  atomic.Bool
}

func New(cfg *config.Config, opts ...registry.Option) *System {
	return &System{
		Config:    cfg,
		Registry:  registry.New(opts...),
		Resources: &ff.Resources{DataDir: cfg.Decoder.DataDir},
		logger:    slog.Default().With("component", "system"),
	}
}

// Setup creates every feature function, applies the weight lines and loads
// the functions. Any error leaves the system not ready.
func (s *System) Setup(ctx context.Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, "system.setup", "")
	defer func() {
		span.SetError(err)
		span.End()
		if s.Config.Tracing.Enabled {
			span.Log(s.logger)
		}
	}()

	dc := s.Config.Decoder
	if err := dc.Validate(); err != nil {
		return err
	}
	if err := s.connect(); err != nil {
		return err
	}

	if err := s.Registry.CreateAll(dc.Features); err != nil {
		return err
	}
	s.logger.Info("feature functions created",
		"count", len(s.Registry.FeatureFunctions()),
		"scores", s.Registry.NumScores(),
	)

	s.Weights.Init(s.Registry)
	for _, line := range dc.Weights {
		if err := s.Weights.CreateFromString(s.Registry, line); err != nil {
			return err
		}
	}

	s.Resources.Vocab = vocab.NewIndex(len(s.Registry.VocabIndexed()))
	if err := s.Registry.Load(ctx, s.Resources); err != nil {
		return err
	}
	if h := s.Registry.UnknownWordHandler(); h == nil {
		s.logger.Warn("no unknown-word handler configured, untranslatable words yield no candidates")
	}

	s.ready.Store(true)
	s.logger.Info("decoder ready")
	return nil
}

// connect opens the store clients the configuration asks for.
func (s *System) connect() error {
	if s.Config.Postgres.Host != "" && s.Resources.Postgres == nil {
		db, err := postgres.New(s.Config.Postgres)
		if err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrLoadFailure, err)
		}
		s.Resources.Postgres = db
	}
	if s.Config.Redis.Addr != "" && s.Resources.Redis == nil {
		rc, err := pkgredis.NewClient(s.Config.Redis)
		if err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrLoadFailure, err)
		}
		s.Resources.Redis = rc
	}
	return nil
}

// Ready reports whether Setup completed.
func (s *System) Ready() bool { return s.ready.Load() }

// Close releases the registry and the store clients.
func (s *System) Close() error {
	s.ready.Store(false)
	errs := []error{s.Registry.Close()}
	if s.Resources.Postgres != nil {
		errs = append(errs, s.Resources.Postgres.Close())
		s.Resources.Postgres = nil
	}
	if s.Resources.Redis != nil {
		errs = append(errs, s.Resources.Redis.Close())
		s.Resources.Redis = nil
	}
	return errors.Join(errs...)
}
