// Package config loads, normalizes, and validates clipmato configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY. Store locations left blank are derived from paths.data_dir so
// a single directory holds uploads, the metadata file, and progress files.
package config
