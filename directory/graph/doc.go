// Package graph implements directory.BatchLookup against a Graph-style JSON
// $batch endpoint.
package graph
