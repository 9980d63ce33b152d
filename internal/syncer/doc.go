// Package syncer reconciles the "User Content" schedule of every configured
// setup with the live asset set and broadcasts the hourly moderation state
// report.
//
// A sync run lists assets, projects them, selects the live set, renders one
// page per live asset and compares asset id membership with each setup's
// schedule. Only setups whose membership differs are written back, so
// repeated runs without moderation changes issue no writes. Setups are
// isolated from each other: a failing setup is reported while the rest are
// still processed.
package syncer
