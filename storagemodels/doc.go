/*
Package storagemodels defines the data structures shared by the table backends
and the generic repository.

Key Types:

Entity / Record:
Every stored type embeds Record, which carries the two-part key and the
store-assigned modification time:

	type TeamData struct {
	    storagemodels.Record
	    Name string `dynamodbav:"Name"`
	}

ContinuationToken:
An opaque cursor returned by a single-segment read. A nil token means the
query is exhausted. Tokens are bound to the query that produced them through a
fingerprint and can be encoded for hand-off between workflow steps:

	encoded, _ := token.Encode()
	token, err := storagemodels.DecodeContinuationToken(encoded)
*/
package storagemodels
