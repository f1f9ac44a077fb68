package config

import "strings"

// Deployment environments recognised in server.environment
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// NormalizeEnvironment lowercases env and maps unknown or empty values to development
func NormalizeEnvironment(env string) string {
	switch env = strings.ToLower(strings.TrimSpace(env)); env {
	case EnvStaging, EnvProduction:
		return env
	default:
		return EnvDevelopment
	}
}

// productionLike is true for environments that must not run on development defaults
func productionLike(env string) bool {
	env = NormalizeEnvironment(env)
	return env == EnvStaging || env == EnvProduction
}

// IsProductionLike reports whether the server runs in staging or production
func (c *ServerConfig) IsProductionLike() bool {
	return productionLike(c.Environment)
}
