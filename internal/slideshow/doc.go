// Package slideshow renders live assets into info-beamer schedule pages.
//
// Tiles are layered in order: the full-screen content tile first, then the
// credit banner shown for non-admin uploads, then station-wide extra tiles.
package slideshow
