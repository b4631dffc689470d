/*
Package deliverystore provides paginated access to the delivery records of a
notification platform and the export pipeline built on top of it.

The library is layered:
  - datastore: the partitioned table contract, with DynamoDB (ddb) and
    in-memory (mock) implementations
  - repository: a generic repository with segmented reads, continuation
    tokens, lazy page streams and bounded batch writes
  - recipients: bounded, resumable reads of a notification's recipients
  - export: page-by-page enrichment of delivery records against a directory,
    with redaction when directory access is denied

Basic Usage:

	client, _ := ddb.NewDynamoDBClient(accessKey, secretKey, region, "")
	stores, _ := deliverystore.Open(ctx, deliverystore.DynamoDBTables(client, "prod-"), logger)

	reader := recipients.NewReader(stores.SentNotifications)
	batch, _ := reader.ReadRecipients(ctx, notificationID)
	for batch.Token != nil {
	    batch, _ = reader.ReadRecipientsByToken(ctx, notificationID, batch.Token)
	}

The deliveryexport command wires these packages from environment configuration.
*/
package deliverystore
