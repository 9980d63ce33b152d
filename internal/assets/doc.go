// Package assets projects hosted asset records into moderation-aware Asset
// values and selects the set that is currently live.
//
// Moderation state lives only in each asset's userdata on the hosted API; this
// package never stores a copy. Records without an owning user belong to other
// uses of the account and are skipped.
package assets
