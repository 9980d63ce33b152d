// Package preflight provides readiness checks for the services and paths a
// sync run depends on. The CLI "status" command runs them before an operator
// enables the sync timer.
package preflight
