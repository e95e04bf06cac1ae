package database

import "goalbot/internal/config"

// Config holds database connection settings. The struct is defined in the
// config package to avoid an import cycle through the logger package.
type Config = config.DatabaseConfig
