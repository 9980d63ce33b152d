package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/config"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/notifications"
	"infobeamer-cms/internal/services"
	"infobeamer-cms/internal/services/infobeamer"
)

const component = "moderation"

// Decision is a moderator verdict.
type Decision string

const (
	Confirm Decision = "confirm"
	Reject  Decision = "reject"
)

// ParseDecision accepts "confirm" or "reject".
func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case Confirm, Reject:
		return Decision(raw), nil
	default:
		return "", services.Wrap(services.ErrValidation, component, "parse decision",
			fmt.Sprintf("unknown decision %q", raw), nil)
	}
}

func (d Decision) state() assets.State {
	if d == Confirm {
		return assets.StateConfirmed
	}
	return assets.StateRejected
}

// AssetStore is the part of the hosted API moderation needs.
type AssetStore interface {
	ListAssets(ctx context.Context, allowCached bool) ([]infobeamer.RawAsset, error)
	GetAsset(ctx context.Context, id int64) (*infobeamer.RawAsset, error)
	UpdateAssetUserdata(ctx context.Context, asset *infobeamer.RawAsset, updates map[string]any) error
	CreateScopedKey(ctx context.Context, statements []infobeamer.PolicyStatement, expire time.Duration, uses int) (string, error)
}

// Service applies moderation transitions.
type Service struct {
	store    AssetStore
	notifier notifications.Service
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires a moderation service. notifier may be nil.
func NewService(store AssetStore, notifier notifications.Service, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		policy:   NewPolicy(cfg),
		logger:   logging.NewComponentLogger(logger, component),
		now:      time.Now,
	}
}

// WithClock overrides the time source, primarily for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Policy returns the upload eligibility rules in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// RequestReview moves a freshly uploaded asset out of the new state. Only
// the owner may submit, and only once. Administrator uploads are confirmed
// immediately; everything else waits in review and moderators are notified.
func (s *Service) RequestReview(ctx context.Context, id int64, user string, isAdmin bool) (assets.State, error) {
	ctx = services.WithAssetID(services.WithOperation(ctx, "review"), id)
	logger := logging.WithContext(ctx, s.logger)

	raw, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return "", err
	}
	if err := requireOwner(raw, user, "review"); err != nil {
		return "", err
	}
	if raw.Userdata.Has(assets.KeyState) {
		return "", services.Wrap(services.ErrValidation, component, "review",
			fmt.Sprintf("asset %d was already submitted", id), nil)
	}

	if isAdmin {
		if err := s.store.UpdateAssetUserdata(ctx, raw, map[string]any{assets.KeyState: assets.StateConfirmed}); err != nil {
			return "", err
		}
		logging.WarnWithContext(logger, "auto-confirming asset uploaded by admin", "asset_auto_confirmed",
			logging.String("user", user),
		)
		return assets.StateConfirmed, nil
	}

	if err := s.store.UpdateAssetUserdata(ctx, raw, map[string]any{assets.KeyState: assets.StateReview}); err != nil {
		return "", err
	}
	asset, _, err := assets.Parse(*raw)
	if err != nil {
		return "", err
	}
	logger.Info("asset waiting for review", logging.String("user", user))
	s.notify(ctx, notifications.Message{
		Text:      fmt.Sprintf("Asset %d uploaded by %s needs moderation", id, asset.Username),
		Level:     notifications.LevelInfo,
		Component: component,
		Asset:     &asset,
	})
	return assets.StateReview, nil
}

// Moderate records a moderator's verdict. Deleted or unmanaged assets are
// reported as not found.
func (s *Service) Moderate(ctx context.Context, id int64, moderator string, decision Decision) (assets.Asset, error) {
	ctx = services.WithAssetID(services.WithOperation(ctx, "moderate"), id)
	logger := logging.WithContext(ctx, s.logger)

	if _, err := ParseDecision(string(decision)); err != nil {
		return assets.Asset{}, err
	}
	raw, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return assets.Asset{}, err
	}
	asset, managed, err := assets.Parse(*raw)
	if err != nil {
		return assets.Asset{}, err
	}
	if !managed || asset.State == assets.StateDeleted {
		logger.Info("moderation request for missing asset", logging.Bool("managed", managed))
		return assets.Asset{}, services.Wrap(services.ErrNotFound, component, "moderate",
			fmt.Sprintf("asset %d does not exist", id), nil)
	}

	next := decision.state()
	if err := s.store.UpdateAssetUserdata(ctx, raw, map[string]any{
		assets.KeyState:       next,
		assets.KeyModeratedBy: moderator,
	}); err != nil {
		return assets.Asset{}, err
	}
	asset.State = next
	asset.ModeratedBy = moderator
	logger.Info("asset moderated",
		logging.String("state", next.String()),
		logging.String("moderator", moderator),
	)
	return asset, nil
}

// Delete marks an asset deleted on behalf of its owner.
func (s *Service) Delete(ctx context.Context, id int64, user string) error {
	ctx = services.WithAssetID(services.WithOperation(ctx, "delete"), id)
	raw, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(raw, user, "delete"); err != nil {
		return err
	}
	if err := s.store.UpdateAssetUserdata(ctx, raw, map[string]any{assets.KeyState: assets.StateDeleted}); err != nil {
		return err
	}
	logging.WithContext(ctx, s.logger).Info("asset deleted by owner", logging.String("user", user))
	return nil
}

// SetWindow replaces the display window of an asset. A nil bound clears it.
func (s *Service) SetWindow(ctx context.Context, id int64, user string, starts, ends *int64) error {
	ctx = services.WithAssetID(services.WithOperation(ctx, "set window"), id)
	if starts != nil && ends != nil && *ends < *starts {
		return services.Wrap(services.ErrValidation, component, "set window", "ends before starts", nil)
	}
	raw, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(raw, user, "set window"); err != nil {
		return err
	}
	if err := s.store.UpdateAssetUserdata(ctx, raw, map[string]any{
		assets.KeyStarts: starts,
		assets.KeyEnds:   ends,
	}); err != nil {
		return err
	}
	logging.WithContext(ctx, s.logger).Info("asset window updated",
		logging.Any("starts", starts),
		logging.Any("ends", ends),
	)
	return nil
}

// Assets returns every managed asset from a fresh listing.
func (s *Service) Assets(ctx context.Context) ([]assets.Asset, error) {
	raws, err := s.store.ListAssets(ctx, false)
	if err != nil {
		return nil, err
	}
	return assets.ParseAll(raws)
}

// AwaitingModeration lists assets in review.
func (s *Service) AwaitingModeration(ctx context.Context) ([]assets.Asset, error) {
	all, err := s.Assets(ctx)
	if err != nil {
		return nil, err
	}
	return assets.AwaitingModeration(all), nil
}

func (s *Service) notify(ctx context.Context, msg notifications.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.Message(ctx, msg)
}

func requireOwner(raw *infobeamer.RawAsset, user, operation string) error {
	owner, _ := raw.Userdata.String(assets.KeyUser)
	if owner == "" || owner != user {
		return services.Wrap(services.ErrForbidden, component, operation,
			fmt.Sprintf("asset %d is not owned by %s", raw.ID, user), nil)
	}
	return nil
}
