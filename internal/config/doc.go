// Package config loads, normalizes, and validates infobeamer-cms configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, imports a local .env file, and honours
// environment fallbacks such as INFOBEAMER_API_KEY and REDIS_ADDR. The Config
// value is constructed once at process start and handed to every component
// constructor; nothing reads configuration from package globals.
//
// User identifiers in admin and no-limit lists are case folded during
// normalization, so IsAdmin and HasNoLimit compare folded values.
package config
