/*
Package export builds the delivery report of a notification.

The Facade joins each segment of delivery records against the directory and
the user cache and yields it as one page of export rows:

	facade, _ := export.NewFacade(deps)
	stream, _ := facade.UserStream(notificationID)
	for rows, err := range stream.Pages(ctx) {
	    if err != nil {
	        return err
	    }
	    write(rows)
	}

When the directory denies access the stream degrades to redacted rows for the
rest of its lifetime instead of failing. Any other directory or store failure
ends the stream with that error.

WriteUsers and WriteTeams drain a stream into CSV.
*/
package export
