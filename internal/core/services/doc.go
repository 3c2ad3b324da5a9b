// Package services implements the driving port interfaces.
// Services hold the ingestion and retrieval logic and reach storage,
// indexes and embedding providers only through driven ports.
package services
