// Package config handles configuration loading for taskmill.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${TASKMILL_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Database:
//
//	database:
//	  path: "/var/lib/taskmill/taskmill.db"
//
// Token encryption (32 bytes, base64):
//
//	secrets:
//	  encryption_key: "${TASKMILL_ENCRYPTION_KEY}"
//
// Google OAuth client:
//
//	google:
//	  client_id: "${GOOGLE_CLIENT_ID}"
//	  client_secret: "${GOOGLE_CLIENT_SECRET}"
//	  redirect_url: "http://localhost:8080/integrations/google/callback"
//
// Language-model service:
//
//	mistral:
//	  api_key: "${MISTRAL_TOKEN}"
//	  model: "mistral-large-latest"
//
// Polling:
//
//	polling:
//	  interval: "10s"
//	  message_limit: 50
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() fails on a missing database path, JWT secret, Google client
// credentials, Mistral API key, or an encryption key that does not decode
// to exactly 32 bytes. These are startup-fatal by design.
package config
