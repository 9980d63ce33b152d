// Package moderation implements the attendee and moderator actions that move
// an asset through its lifecycle: submitting for review, confirming or
// rejecting, deleting and editing the display window. It also owns the upload
// eligibility rules and issues single-use upload keys.
//
// Every transition is a read-modify-write of the asset's hosted metadata. The
// sync run picks changes up on its next pass.
package moderation
