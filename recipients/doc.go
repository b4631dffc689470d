// Package recipients reads the recipients of a notification in chunks that
// are bounded in size and resumable through continuation tokens.
package recipients
