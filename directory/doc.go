// Package directory defines the directory entries that delivery records are
// joined against and the batch lookup contract used to resolve them.
package directory
