package dynamo

import "time"

// Config holds configuration for the DynamoDB store.
type Config struct {
	// Table is the name of the ledger table.
	// The table needs a binary partition key named "pk" and no sort key.
	// Default: "forum_ledger"
	Table string

	// MaxAttempts bounds how many times an Update is run when commits
	// keep losing revision races.
	// Default: 5
	// Max: 20
	MaxAttempts int

	// RetryBaseDelay is the first backoff interval after a conflict.
	// Default: 25ms
	RetryBaseDelay time.Duration
}

// DefaultConfig returns defaults for a single ledger table.
func DefaultConfig() Config {
	return Config{
		Table:          "forum_ledger",
		MaxAttempts:    5,
		RetryBaseDelay: 25 * time.Millisecond,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = "forum_ledger"
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.MaxAttempts > 20 {
		c.MaxAttempts = 20
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 25 * time.Millisecond
	}
}
