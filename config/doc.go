// Package config loads the delivery store settings from the environment and
// an optional .env file.
package config
