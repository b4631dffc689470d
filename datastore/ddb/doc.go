/*
Package ddb provides a DynamoDB implementation of the datastore.Table interface.

The Table supports:
  - Macro-based key expansion (e.g., "NOTIFICATION#{PartitionKey}")
  - Partition-pinned filters served by Query, all other filters by Scan
  - Merge writes through UpdateItem SET expressions
  - Batches of up to 100 operations through TransactWriteItems
  - Store-assigned fixed-width Timestamp attributes
  - Table creation on demand (EnsureExists)

Key Templates:
Physical keys are derived from the record key attributes:

	schema := ddb.KeySchema{
	    PartitionKey: "NOTIFICATION#{PartitionKey}", // Becomes "NOTIFICATION#n1"
	    SortKey:      "{RowKey}",                    // Direct field value
	}

Every item keeps PartitionKey and RowKey as regular attributes, so filters may
reference them freely.

Usage:

	client, _ := ddb.NewDynamoDBClient(accessKey, secretKey, region, "")
	table := ddb.NewTable(client, "SentNotificationData", ddb.WithKeySchema(schema))
	if err := table.EnsureExists(ctx); err != nil {
	    return err
	}
*/
package ddb
