package syncer

import (
	"encoding/json"

	"infobeamer-cms/internal/services"
	"infobeamer-cms/internal/slideshow"
)

// setupConfig is a setup configuration decoded only as deep as needed. Keys
// this module does not own are carried as raw JSON and written back verbatim.
type setupConfig struct {
	fields    map[string]json.RawMessage
	schedules []schedule
}

type schedule map[string]json.RawMessage

func decodeSetupConfig(raw json.RawMessage) (*setupConfig, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, malformed("config is not an object", err)
	}
	doc := &setupConfig{fields: fields}
	if rawSchedules, ok := fields["schedules"]; ok && !isJSONNull(rawSchedules) {
		if err := json.Unmarshal(rawSchedules, &doc.schedules); err != nil {
			return nil, malformed("schedules is not a list of objects", err)
		}
	}
	return doc, nil
}

func (c *setupConfig) encode() (json.RawMessage, error) {
	schedules, err := json.Marshal(c.schedules)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "syncer", "encode setup", "encode schedules", err)
	}
	c.fields["schedules"] = schedules
	encoded, err := json.Marshal(c.fields)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "syncer", "encode setup", "encode config", err)
	}
	return encoded, nil
}

func (s schedule) name() string {
	var name string
	if raw, ok := s["name"]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	return name
}

type schedulePage struct {
	Tiles []struct {
		Type  string          `json:"type"`
		Asset json.RawMessage `json:"asset"`
	} `json:"tiles"`
}

// contentAssets collects the asset ids referenced by image and video tiles.
// foreign is set when a content tile references something that is not a
// hosted asset id, which can never match the live set.
func (s schedule) contentAssets() (ids map[int64]struct{}, foreign bool, err error) {
	ids = map[int64]struct{}{}
	raw, ok := s["pages"]
	if !ok || isJSONNull(raw) {
		return ids, false, nil
	}
	var pages []schedulePage
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, false, malformed("schedule pages are malformed", err)
	}
	for _, page := range pages {
		for _, tile := range page.Tiles {
			if !slideshow.IsContent(tile.Type) {
				continue
			}
			id, ok := slideshow.AssetID(tile.Asset)
			if !ok {
				foreign = true
				continue
			}
			ids[id] = struct{}{}
		}
	}
	return ids, foreign, nil
}

func malformed(message string, err error) error {
	return services.Wrap(services.ErrValidation, "syncer", "read setup", message, err)
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

// HasSchedule reports whether a setup configuration carries a schedule named
// ScheduleName.
func HasSchedule(raw json.RawMessage) (bool, error) {
	doc, err := decodeSetupConfig(raw)
	if err != nil {
		return false, err
	}
	for _, schedule := range doc.schedules {
		if schedule.name() == ScheduleName {
			return true, nil
		}
	}
	return false, nil
}
