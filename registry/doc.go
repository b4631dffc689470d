/*
Package registry maps record types to their table definitions.

Record packages register their tables during initialization:

	func init() {
	    registry.RegisterTable[SentNotification](registry.TableDefinition{
	        Name:             "SentNotificationData",
	        DefaultPartition: "default",
	    })
	}

Backends look definitions up by type or name when they provision tables:

	def, ok := registry.TableFor[SentNotification]()

The registry is thread-safe and should be populated during initialization,
typically in init() functions.
*/
package registry
