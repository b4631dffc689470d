/*
Package datastore defines the partitioned table contract that the delivery
store's repositories are built on.

The main interface is Table, which addresses raw items by (PartitionKey, RowKey)
and serves segmented queries:

	type Table interface {
	    Name() string
	    Get(ctx context.Context, partitionKey, rowKey string) (Item, error)
	    Upsert(ctx context.Context, item Item, mode WriteMode) error
	    Delete(ctx context.Context, partitionKey, rowKey string) error
	    QuerySegment(ctx context.Context, query Query, cursor Cursor) (Segment, error)
	    ExecuteBatch(ctx context.Context, ops []BatchOperation) error
	}

Implementations:
  - ddb: DynamoDB implementation (PK/SK key schema, transactional batches)
  - mock: In-memory implementation for tests and local runs

A batch carries at most MaxBatchSize (100) operations. Splitting larger inputs
is the repository's job.
*/
package datastore
