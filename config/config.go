/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	storeerrors "github.com/suparena/deliverystore/errors"
)

// Storage backends.
const (
	BackendDynamoDB = "ddb"
	BackendMemory   = "memory"
)

// Config holds the settings loaded from the environment.
type Config struct {
	Backend string

	AWSAccessKey     string
	AWSSecretKey     string
	AWSRegion        string
	DynamoDBEndpoint string
	TablePrefix      string
	// TablesFile optionally points at a YAML file of per-table key templates.
	TablesFile string

	DirectoryBaseURL   string
	DirectoryBatchSize int

	Locale string

	RecipientsPageSize      int
	RecipientsMaxResultSize int

	LogLevel string
}

// Load reads an optional .env file in the working directory, then the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	c := &Config{
		Backend:          getEnv("DELIVERY_BACKEND", BackendDynamoDB),
		AWSAccessKey:     os.Getenv("AWS_ACCESS_KEY"),
		AWSSecretKey:     os.Getenv("AWS_SECRET_KEY"),
		AWSRegion:        os.Getenv("AWS_REGION"),
		DynamoDBEndpoint: os.Getenv("AWS_DDB_ENDPOINT"),
		TablePrefix:      os.Getenv("AWS_DDB_TABLE_PREFIX"),
		TablesFile:       os.Getenv("DELIVERY_TABLES_FILE"),
		DirectoryBaseURL: getEnv("DIRECTORY_BASE_URL", "https://graph.microsoft.com/v1.0"),
		Locale:           getEnv("EXPORT_LOCALE", "en"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if c.DirectoryBatchSize, err = getEnvInt("DIRECTORY_BATCH_SIZE", 15); err != nil {
		return nil, err
	}
	if c.RecipientsPageSize, err = getEnvInt("RECIPIENTS_PAGE_SIZE", 1000); err != nil {
		return nil, err
	}
	if c.RecipientsMaxResultSize, err = getEnvInt("RECIPIENTS_MAX_RESULT_SIZE", 100000); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the settings required by the selected backend are present.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.AWSAccessKey == "" {
			return storeerrors.NewValidationError("AWS_ACCESS_KEY", "required for the ddb backend")
		}
		if c.AWSSecretKey == "" {
			return storeerrors.NewValidationError("AWS_SECRET_KEY", "required for the ddb backend")
		}
		if c.AWSRegion == "" {
			return storeerrors.NewValidationError("AWS_REGION", "required for the ddb backend")
		}
	default:
		return storeerrors.NewValidationError("DELIVERY_BACKEND", fmt.Sprintf("unknown backend %q", c.Backend))
	}

	if c.DirectoryBatchSize <= 0 {
		return storeerrors.NewValidationError("DIRECTORY_BATCH_SIZE", "must be positive")
	}
	if c.RecipientsPageSize <= 0 {
		return storeerrors.NewValidationError("RECIPIENTS_PAGE_SIZE", "must be positive")
	}
	if c.RecipientsMaxResultSize < c.RecipientsPageSize {
		return storeerrors.NewValidationError("RECIPIENTS_MAX_RESULT_SIZE", "must not be smaller than the page size")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, storeerrors.NewValidationError(key, fmt.Sprintf("not an integer: %q", val))
	}
	return n, nil
}
