// Package config loads, normalizes, and validates tunecache configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MONGO_URL and TUNECACHE_API_TOKEN. The Config type centralizes every knob the
// daemon and CLI need so the store backend, the yt-dlp toolchain, and the
// artifact host are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
