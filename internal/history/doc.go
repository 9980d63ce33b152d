// Package history records sync runs in a SQLite database under the state
// directory so operators can see when setups were last rewritten and which
// runs failed.
package history
