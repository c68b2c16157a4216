package main

import (
	"rps_wallet/internal/config" // Custom import path (Config)
	"rps_wallet/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg)            // Create the schema and seed the house account
}
