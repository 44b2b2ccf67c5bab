// Package pipeline runs the user-facing commands: search, list dates,
// select a date and visualize it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robert-malhotra/landcover/internal/catalog"
	"github.com/robert-malhotra/landcover/internal/geo"
	"github.com/robert-malhotra/landcover/internal/query"
	"github.com/robert-malhotra/landcover/internal/raster"
	"github.com/robert-malhotra/landcover/internal/scene"
	"github.com/robert-malhotra/landcover/internal/session"
	"github.com/robert-malhotra/landcover/internal/stac"
)

// Materializer loads catalog items into a scene stack.
type Materializer interface {
	Materialize(ctx context.Context, items []*stac.Item, bbox geo.BBox) (*raster.Stack, error)
}

// Service dispatches commands against sessions.
type Service struct {
	allow    query.Allowlist
	searcher catalog.Searcher
	loader   Materializer
	policy   scene.NoDataPolicy
	logger   *slog.Logger
}

// NewService creates a service. Collections outside allow are rejected.
func NewService(allow query.Allowlist, searcher catalog.Searcher, loader Materializer, policy scene.NoDataPolicy) *Service {
	if policy == "" {
		policy = scene.NoDataExclude
	}
	return &Service{
		allow:    allow,
		searcher: searcher,
		loader:   loader,
		policy:   policy,
		logger:   slog.Default(),
	}
}

// WithLogger sets a custom logger for the service.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// SearchResult describes a completed search.
type SearchResult struct {
	Seq    uint64   `json:"seq"`
	Labels []string `json:"dates"`
}

// Visualization is the rendering of one time step.
type Visualization struct {
	Date    string          `json:"date"`
	Index   int             `json:"index"`
	Summary scene.Summary   `json:"summary"`
	RGB     *scene.RGBSlice `json:"-"`
}

// IsNoResults reports whether err means the search matched nothing usable.
func IsNoResults(err error) bool {
	return errors.Is(err, catalog.ErrNoMatchingScenes) || errors.Is(err, raster.ErrEmptyStack)
}

// RunSearch validates params, searches the catalog, loads the matching
// scenes and installs them in sess. Validation errors and cancellation
// leave the loaded scenes untouched; other failures are recorded as a
// notice according to the session policy.
func (s *Service) RunSearch(ctx context.Context, sess *session.Session, p query.Params) (*SearchResult, error) {
	spec, err := query.Build(p, s.allow)
	if err != nil {
		return nil, err
	}

	seq := sess.Issue(spec)
	logger := s.logger.With(
		slog.String("session", sess.ID),
		slog.Uint64("seq", seq),
	)

	logger.InfoContext(ctx, "search issued",
		slog.String("collection", spec.Collection()),
		slog.String("bbox", spec.BBox().String()),
		slog.String("datetime", spec.Datetime()),
	)

	items, err := s.searcher.Search(ctx, spec)
	if err != nil {
		return nil, s.fail(ctx, logger, sess, seq, err)
	}

	stack, err := s.loader.Materialize(ctx, items, spec.BBox())
	if err != nil {
		return nil, s.fail(ctx, logger, sess, seq, err)
	}

	labels, err := scene.DeriveLabels(stack)
	if err != nil {
		return nil, s.fail(ctx, logger, sess, seq, err)
	}

	// A cancelled request must not install its stack even if loading
	// raced to completion.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res := sess.Dispatch(session.SearchCompleted{Seq: seq, Stack: stack, Labels: labels}); res.Err != nil {
		logger.WarnContext(ctx, "search result discarded", slog.String("error", res.Err.Error()))
		return nil, res.Err
	}

	logger.InfoContext(ctx, "search completed",
		slog.Int("items", len(items)),
		slog.Int("scenes", stack.Len()),
	)

	return &SearchResult{Seq: seq, Labels: labels}, nil
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, sess *session.Session, seq uint64, cause error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.InfoContext(ctx, "search cancelled")
		return ctxErr
	}

	if IsNoResults(cause) {
		logger.InfoContext(ctx, "search returned no scenes", slog.String("reason", cause.Error()))
	} else {
		logger.ErrorContext(ctx, "search failed", slog.String("error", cause.Error()))
	}

	if res := sess.Dispatch(session.SearchFailed{Seq: seq, Err: cause}); res.Err != nil {
		logger.DebugContext(ctx, "failure not applied", slog.String("error", res.Err.Error()))
	}
	return cause
}

// ListDates returns the date labels of the loaded scenes, empty when none
// are loaded.
func (s *Service) ListDates(sess *session.Session) []string {
	labels := sess.Snapshot().Labels()
	if labels == nil {
		return []string{}
	}
	return labels
}

// SelectDate selects the first time step carrying label.
func (s *Service) SelectDate(sess *session.Session, label string) (int, error) {
	res := sess.Dispatch(session.SelectDate{Label: label})
	return res.Index, res.Err
}

// Visualize summarizes and renders the selected time step, or the first
// one when nothing was selected yet.
func (s *Service) Visualize(sess *session.Session) (*Visualization, error) {
	snap := sess.Snapshot()

	_, res := session.Reduce(snap, session.Visualize{})
	if res.Err != nil {
		return nil, res.Err
	}

	date, err := snap.Index.Label(res.Index)
	if err != nil {
		return nil, err
	}

	summary, err := scene.Summarize(snap.Stack, res.Index, s.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s: %w", date, err)
	}

	rgb, err := scene.RGB(snap.Stack, res.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to extract rgb for %s: %w", date, err)
	}

	return &Visualization{
		Date:    date,
		Index:   res.Index,
		Summary: summary,
		RGB:     rgb,
	}, nil
}

// History returns the searches submitted in sess, oldest first.
func (s *Service) History(sess *session.Session) []session.Submission {
	history := sess.Snapshot().History
	if history == nil {
		return []session.Submission{}
	}
	return history
}
