package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"infobeamer-cms/internal/services"
	"infobeamer-cms/internal/services/infobeamer"
)

// Filetypes understood by the renderer.
const (
	FiletypeImage = "image"
	FiletypeVideo = "video"
)

// Userdata keys owned by this module.
const (
	KeyUser        = "user"
	KeyUsername    = "username"
	KeyState       = "state"
	KeyStarts      = "starts"
	KeyEnds        = "ends"
	KeyModeratedBy = "moderated_by"
)

// Asset is the projection of a hosted asset managed by this module.
type Asset struct {
	ID          int64  `json:"id"`
	Filetype    string `json:"filetype"`
	Thumb       string `json:"thumb"`
	User        string `json:"user"`
	Username    string `json:"username"`
	State       State  `json:"state"`
	Starts      *int64 `json:"starts"`
	Ends        *int64 `json:"ends"`
	ModeratedBy string `json:"moderated_by,omitempty"`
}

// IsVideo reports whether the asset renders as a video tile.
func (a Asset) IsVideo() bool {
	return a.Filetype == FiletypeVideo
}

// Parse projects a raw hosted record. ok is false when the record carries no
// owning user and therefore does not belong to this module. A user or state of
// the wrong type is an error, as is a state outside the known set; an absent
// state means StateNew.
func Parse(raw infobeamer.RawAsset) (Asset, bool, error) {
	var user string
	if value, present := raw.Userdata[KeyUser]; present && !isNull(value) {
		if err := json.Unmarshal(value, &user); err != nil {
			return Asset{}, false, services.Wrap(services.ErrValidation, "assets", "parse",
				fmt.Sprintf("asset %d: user is not a string", raw.ID), err)
		}
	}
	if strings.TrimSpace(user) == "" {
		return Asset{}, false, nil
	}

	state := StateNew
	if value, present := raw.Userdata[KeyState]; present && !isNull(value) {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return Asset{}, false, services.Wrap(services.ErrValidation, "assets", "parse",
				fmt.Sprintf("asset %d: state is not a string", raw.ID), err)
		}
		parsed, err := ParseState(text)
		if err != nil {
			return Asset{}, false, services.Wrap(services.ErrValidation, "assets", "parse",
				fmt.Sprintf("asset %d", raw.ID), err)
		}
		state = parsed
	}

	username, _ := raw.Userdata.String(KeyUsername)
	if strings.TrimSpace(username) == "" {
		username = displayName(user)
	}
	moderatedBy, _ := raw.Userdata.String(KeyModeratedBy)

	return Asset{
		ID:          raw.ID,
		Filetype:    raw.Filetype,
		Thumb:       raw.Thumb,
		User:        user,
		Username:    username,
		State:       state,
		Starts:      parseEpoch(raw.Userdata[KeyStarts]),
		Ends:        parseEpoch(raw.Userdata[KeyEnds]),
		ModeratedBy: moderatedBy,
	}, true, nil
}

// ParseAll projects a listing, skipping unmanaged records. The first malformed
// record aborts the projection.
func ParseAll(raws []infobeamer.RawAsset) ([]Asset, error) {
	out := make([]Asset, 0, len(raws))
	for _, raw := range raws {
		asset, ok, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, asset)
		}
	}
	return out, nil
}

// parseEpoch accepts a JSON integer or a string of decimal digits. Anything
// else, including floats and signed strings, yields nil.
func parseEpoch(raw json.RawMessage) *int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil || !isDigits(text) {
			return nil
		}
		return parseInt(text)
	}
	return parseInt(string(raw))
}

func parseInt(text string) *int64 {
	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

func isDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// displayName strips the login provider prefix from a user identifier, so
// "github:alice" is shown as "alice".
func displayName(user string) string {
	if idx := strings.LastIndex(user, ":"); idx >= 0 && idx < len(user)-1 {
		return user[idx+1:]
	}
	return user
}
