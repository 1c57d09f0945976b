// Package config provides centralized configuration management for the
// RolePay settlement daemon: the main JSON configuration file, the YAML
// network definition catalogue and the environment overrides used for
// secrets and interval tuning.
package config
