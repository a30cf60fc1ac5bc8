// Package config provides configuration structures and utilities for doccrawl.
// It defines crawl quotas, timeouts, storage locations, report preferences
// and the optional per-site YAML configuration file.
package config
