/*
Package errors provides semantic error types for the delivery store.

The package defines the error taxonomy shared by the repository, the recipient
reader and the export facade. Every typed error can be checked with the standard
errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound       = errors.New("entity not found")
	    ErrInvalidInput   = errors.New("invalid input")
	    ErrForbidden      = errors.New("access forbidden")
	    ErrStreamConsumed = errors.New("stream already consumed")
	)

Usage:

	// Missing identifiers are reported before any I/O
	result, err := reader.ReadRecipientsByToken(ctx, "", nil)
	if errors.IsValidationError(err) {
	    // Handle invalid argument
	}

	// Delete fails when the entity vanished in the meantime
	if err := repo.Delete(ctx, entity); errors.IsNotFound(err) {
	    // Nothing was deleted
	}

	// Directory lookups report authorization denial distinctly
	if errors.IsForbidden(err) {
	    // Degrade to redacted output
	}
*/
package errors
