// Package connectors provides document sources that feed the ingestion
// pipeline. Each connector discovers files in one kind of location and
// reports changes; the caller uploads and processes them.
package connectors
