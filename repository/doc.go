/*
Package repository provides a generic, paginated repository over a
datastore.Table.

A Repository is bound to one record type and one default partition:

	repo := repository.New[notification.SentNotification](table, "default",
	    repository.WithLogger(logger))

Reads come in three shapes:
  - Bulk: GetAll, GetWithFilter and GetAllLessThanDateTime follow continuation
    cursors until the query is exhausted.
  - Single segment: GetByCount and GetByToken return one Page together with a
    ContinuationToken that resumes after it. Tokens are bound to the query that
    issued them and are rejected when replayed against another partition.
  - Streamed: GetStream returns a lazy Stream whose elements are whole store
    segments.

	stream := repo.GetStream(notificationID, 500)
	for page, err := range stream.Pages(ctx) {
	    if err != nil {
	        return err
	    }
	    process(page)
	}

Batch writes are split into groups of at most 100 operations and executed
sequentially; the first failing group aborts the rest.

Store failures are logged and returned unchanged. The repository never retries.
*/
package repository
