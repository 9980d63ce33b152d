package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/config"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/services"
	"infobeamer-cms/internal/services/infobeamer"
)

const (
	uploadKeyExpiry = time.Minute
	maxVideoSeconds = 11
	imageWidth      = 1920
	imageHeight     = 1080
)

// Policy holds the upload eligibility rules.
type Policy struct {
	isAdmin    func(string) bool
	hasNoLimit func(string) bool
	// MaxUploads caps non-deleted uploads per user. Zero disables the cap.
	MaxUploads int
	// TimeMin and TimeMax bound the upload window in epoch seconds. Zero
	// leaves that side open.
	TimeMin int64
	TimeMax int64
}

// NewPolicy reads the moderation section of cfg.
func NewPolicy(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{}
	}
	return Policy{
		isAdmin:    cfg.IsAdmin,
		hasNoLimit: cfg.HasNoLimit,
		MaxUploads: cfg.Moderation.MaxUploads,
		TimeMin:    cfg.Moderation.TimeMin,
		TimeMax:    cfg.Moderation.TimeMax,
	}
}

// IsAdmin reports whether user may moderate.
func (p Policy) IsAdmin(user string) bool {
	return p.isAdmin != nil && p.isAdmin(user)
}

// UploadsOpen reports whether user may upload at now. Administrators are
// never restricted; everyone else only strictly inside the window.
func (p Policy) UploadsOpen(now time.Time, user string) bool {
	if p.IsAdmin(user) {
		return true
	}
	epoch := now.Unix()
	if p.TimeMin != 0 && epoch <= p.TimeMin {
		return false
	}
	if p.TimeMax != 0 && epoch >= p.TimeMax {
		return false
	}
	return true
}

// UploadLimitReached reports whether a user owning count non-deleted assets
// must not upload more.
func (p Policy) UploadLimitReached(count int, user string) bool {
	if p.MaxUploads <= 0 || p.IsAdmin(user) {
		return false
	}
	if p.hasNoLimit != nil && p.hasNoLimit(user) {
		return false
	}
	return count >= p.MaxUploads
}

// UploadGrant lets a browser upload exactly one file under a fixed name.
type UploadGrant struct {
	Filename  string `json:"filename"`
	User      string `json:"user"`
	UploadKey string `json:"upload_key"`
}

// PrepareUpload checks eligibility and issues a single-use upload key whose
// policy pins the file name, owner and media format.
func (s *Service) PrepareUpload(ctx context.Context, user, filetype string) (UploadGrant, error) {
	ctx = services.WithOperation(ctx, "prepare upload")
	logger := logging.WithContext(ctx, s.logger)
	now := s.now()

	if filetype != assets.FiletypeImage && filetype != assets.FiletypeVideo {
		return UploadGrant{}, services.Wrap(services.ErrValidation, component, "prepare upload", "invalid or missing filetype", nil)
	}
	if !s.policy.UploadsOpen(now, user) {
		return UploadGrant{}, services.Wrap(services.ErrForbidden, component, "prepare upload", "uploads are closed", nil)
	}
	if !s.policy.IsAdmin(user) && s.policy.MaxUploads > 0 {
		raws, err := s.store.ListAssets(ctx, false)
		if err != nil {
			return UploadGrant{}, err
		}
		all, err := assets.ParseAll(raws)
		if err != nil {
			return UploadGrant{}, err
		}
		if s.policy.UploadLimitReached(len(assets.OwnedBy(all, user)), user) {
			return UploadGrant{}, services.Wrap(services.ErrForbidden, component, "prepare upload", "You have reached your upload limit", nil)
		}
	}

	extension := "jpg"
	if filetype == assets.FiletypeVideo {
		extension = "mp4"
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	filename := fmt.Sprintf("user/%s/%s_%s.%s", user, now.UTC().Format("2006-01-02 15:04:05"), token, extension)

	key, err := s.store.CreateScopedKey(ctx, []infobeamer.PolicyStatement{{
		Action:    "asset:upload",
		Condition: uploadCondition(filename, filetype, user),
		Effect:    "allow",
	}}, uploadKeyExpiry, 1)
	if err != nil {
		return UploadGrant{}, err
	}
	logger.Info("upload key issued", logging.String("user", user), logging.String("filename", filename))
	return UploadGrant{Filename: filename, User: user, UploadKey: key}, nil
}

func uploadCondition(filename, filetype, user string) map[string]map[string]any {
	condition := map[string]map[string]any{
		"StringEquals": {
			"asset:filename": filename,
			"asset:filetype": filetype,
			"userdata:user":  user,
		},
		"NotExists": {"userdata:state": true},
		"Boolean":   {"asset:exists": false},
	}
	if filetype == assets.FiletypeImage {
		condition["NumericEquals"] = map[string]any{
			"asset:metadata:width":  imageWidth,
			"asset:metadata:height": imageHeight,
		}
		condition["StringEquals"]["asset:metadata:format"] = "jpeg"
	} else {
		condition["NumericLess"] = map[string]any{"asset:metadata:duration": maxVideoSeconds}
		condition["StringEquals"]["asset:metadata:format"] = "h264"
	}
	return condition
}
