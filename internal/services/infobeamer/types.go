package infobeamer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawAsset is an asset record as returned by the hosted API.
type RawAsset struct {
	ID       int64    `json:"id"`
	Filename string   `json:"filename"`
	Filetype string   `json:"filetype"`
	Thumb    string   `json:"thumb"`
	Userdata Userdata `json:"userdata"`
}

// Userdata is the free-form metadata blob attached to an asset. Values are kept
// as raw JSON so that projection decides how to interpret them and unknown keys
// survive a read-modify-write.
type Userdata map[string]json.RawMessage

// UnmarshalJSON accepts an object, null, or the empty list the API returns for
// assets that never had metadata.
func (u *Userdata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]")) {
		*u = Userdata{}
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return fmt.Errorf("decode userdata: %w", err)
	}
	*u = m
	return nil
}

// String returns the string stored under key. ok is false when the key is
// missing, null, or not a JSON string.
func (u Userdata) String(key string) (string, bool) {
	raw, present := u[key]
	if !present {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Has reports whether key is present, including explicit nulls.
func (u Userdata) Has(key string) bool {
	_, ok := u[key]
	return ok
}

type assetList struct {
	Assets []RawAsset `json:"assets"`
}

// Setup is a hosted setup with its configuration variants. The configuration
// of the default variant lives under the empty-string key.
type Setup struct {
	ID     int64                      `json:"id"`
	Name   string                     `json:"name"`
	Config map[string]json.RawMessage `json:"config"`
}

// DefaultConfig returns the configuration blob of the default variant.
func (s *Setup) DefaultConfig() (json.RawMessage, bool) {
	if s == nil || s.Config == nil {
		return nil, false
	}
	raw, ok := s.Config[""]
	if !ok || len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

// Device is a hosted device as listed by device/list.
type Device struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	IsOnline    bool            `json:"is_online"`
	Hardware    *DeviceHardware `json:"hw"`
}

// DeviceHardware describes the board a device runs on.
type DeviceHardware struct {
	Model string `json:"model"`
}

type deviceList struct {
	Devices []Device `json:"devices"`
}

// PolicyStatement is one statement of an ad-hoc API key policy.
type PolicyStatement struct {
	Action    string                    `json:"Action"`
	Condition map[string]map[string]any `json:"Condition,omitempty"`
	Effect    string                    `json:"Effect"`
}

type policy struct {
	Version    int               `json:"Version"`
	Statements []PolicyStatement `json:"Statements"`
}
