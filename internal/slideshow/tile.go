package slideshow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Canvas dimensions in device pixels.
const (
	CanvasWidth  = 1920
	CanvasHeight = 1080
)

// Tile types that display uploaded content.
const (
	TypeImage    = "image"
	TypeRawVideo = "rawvideo"
	TypeFlat     = "flat"
	TypeMarkup   = "markup"
)

// Tile is one layer of a page. Asset holds either a numeric asset id or a
// file name of the package, as raw JSON.
type Tile struct {
	Type   string          `json:"type"`
	Asset  json.RawMessage `json:"asset"`
	X1     int             `json:"x1"`
	Y1     int             `json:"y1"`
	X2     int             `json:"x2"`
	Y2     int             `json:"y2"`
	Config map[string]any  `json:"config"`
}

// AssetRef encodes a hosted asset id for Tile.Asset.
func AssetRef(id int64) json.RawMessage {
	return json.RawMessage(strconv.FormatInt(id, 10))
}

// AssetFile encodes a package file name for Tile.Asset.
func AssetFile(name string) json.RawMessage {
	encoded, _ := json.Marshal(name)
	return encoded
}

// IsContent reports whether a tile of this type shows an uploaded asset.
func IsContent(tileType string) bool {
	return tileType == TypeImage || tileType == TypeRawVideo
}

// AssetID interprets a tile asset reference as a hosted asset id. Numbers
// (including whole floats as written by other editors) and digit strings are
// accepted.
func AssetID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0, false
	}
	id := int64(number)
	if float64(id) != number || id <= 0 {
		return 0, false
	}
	return id, true
}

// Interaction holds the remote-control binding of a page.
type Interaction struct {
	Key string `json:"key"`
}

// Page is one slide of the "User Content" schedule.
type Page struct {
	AutoDuration float64     `json:"auto_duration"`
	Duration     float64     `json:"duration"`
	Interaction  Interaction `json:"interaction"`
	LayoutID     int         `json:"layout_id"`
	Overlap      float64     `json:"overlap"`
	Tiles        []Tile      `json:"tiles"`
}

// TilesFromConfig converts operator supplied tiles into Tile values.
func TilesFromConfig(raw []map[string]any) ([]Tile, error) {
	tiles := make([]Tile, 0, len(raw))
	for i, entry := range raw {
		encoded, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("extra tile %d: %w", i, err)
		}
		var tile Tile
		if err := json.Unmarshal(encoded, &tile); err != nil {
			return nil, fmt.Errorf("extra tile %d: %w", i, err)
		}
		if tile.Type == "" {
			return nil, fmt.Errorf("extra tile %d: type required", i)
		}
		if tile.Config == nil {
			tile.Config = map[string]any{}
		}
		tiles = append(tiles, tile)
	}
	return tiles, nil
}
