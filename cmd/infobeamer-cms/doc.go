// Package main hosts the infobeamer-cms command line.
//
// The sync command is the batch entry point run from a timer: it reconciles
// every configured setup with the live content and, once an hour, broadcasts
// how many assets still wait for moderation. The remaining commands inspect
// assets, record moderator decisions, print the run history, expose metrics
// and scaffold configuration.
package main
