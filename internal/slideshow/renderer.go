package slideshow

import (
	"fmt"
	"maps"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/config"
)

// Banner layout for non-admin uploads.
const (
	bannerY1      = 1040
	markupX1      = 150
	markupY1      = 1048
	markupX2      = 1900
	bannerColor   = "#000000"
	bannerAlpha   = 230
	markupColor   = "#dddddd"
	markupSize    = 25
	bannerFile    = "flat.png"
	markupFont    = "default-font.ttf"
	videoLayer    = -5
	firstLayoutID = -1
)

// Renderer turns live assets into schedule pages. It is a pure function of
// the asset and its own fields.
type Renderer struct {
	SlideTime  float64
	FadeTime   float64
	Domain     string
	IsAdmin    func(user string) bool
	ExtraTiles []Tile
}

// NewRenderer builds a Renderer from configuration.
func NewRenderer(cfg *config.Config) (*Renderer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("renderer: config required")
	}
	extra, err := TilesFromConfig(cfg.Slideshow.ExtraTiles)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	return &Renderer{
		SlideTime:  cfg.Slideshow.SlideTime,
		FadeTime:   cfg.Slideshow.FadeTime,
		Domain:     cfg.Slideshow.Domain,
		IsAdmin:    cfg.IsAdmin,
		ExtraTiles: extra,
	}, nil
}

// Tiles renders one asset. The content tile comes first; the credit banner
// for non-admin owners and the configured extra tiles are layered on top.
func (r *Renderer) Tiles(asset assets.Asset) []Tile {
	tiles := make([]Tile, 0, 3+len(r.ExtraTiles))
	tiles = append(tiles, r.contentTile(asset))

	if r.IsAdmin == nil || !r.IsAdmin(asset.User) {
		tiles = append(tiles,
			Tile{
				Type:  TypeFlat,
				Asset: AssetFile(bannerFile),
				X1:    0, Y1: bannerY1, X2: CanvasWidth, Y2: CanvasHeight,
				Config: map[string]any{
					"color":     bannerColor,
					"alpha":     bannerAlpha,
					"fade_time": r.FadeTime,
				},
			},
			Tile{
				Type:  TypeMarkup,
				Asset: AssetFile(markupFont),
				X1:    markupX1, Y1: markupY1, X2: markupX2, Y2: CanvasHeight,
				Config: map[string]any{
					"font_size": markupSize,
					"fade_time": r.FadeTime,
					"text":      r.credit(asset),
					"color":     markupColor,
				},
			},
		)
	}

	for _, extra := range r.ExtraTiles {
		extra.Config = maps.Clone(extra.Config)
		extra.Asset = append([]byte(nil), extra.Asset...)
		tiles = append(tiles, extra)
	}
	return tiles
}

// Page renders one asset as a schedule page. The page duration subtracts both
// fades since the player adds them to the nominal duration.
func (r *Renderer) Page(asset assets.Asset) Page {
	return Page{
		AutoDuration: r.SlideTime,
		Duration:     r.SlideTime - 2*r.FadeTime,
		Interaction:  Interaction{Key: ""},
		LayoutID:     firstLayoutID,
		Overlap:      0,
		Tiles:        r.Tiles(asset),
	}
}

// Pages renders every asset in order.
func (r *Renderer) Pages(live []assets.Asset) []Page {
	pages := make([]Page, 0, len(live))
	for _, asset := range live {
		pages = append(pages, r.Page(asset))
	}
	return pages
}

func (r *Renderer) contentTile(asset assets.Asset) Tile {
	tile := Tile{
		Type:  TypeImage,
		Asset: AssetRef(asset.ID),
		X1:    0, Y1: 0, X2: CanvasWidth, Y2: CanvasHeight,
		Config: map[string]any{"fade_time": r.FadeTime},
	}
	if asset.IsVideo() {
		tile.Type = TypeRawVideo
		tile.Config["layer"] = videoLayer
		tile.Config["looped"] = true
	}
	return tile
}

func (r *Renderer) credit(asset assets.Asset) string {
	name := asset.Username
	if name == "" {
		name = asset.User
	}
	return fmt.Sprintf("Project by @%s - visit %s to share your own.", name, r.Domain)
}
