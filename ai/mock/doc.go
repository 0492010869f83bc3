// Package mock provides a deterministic Embedder test double.
package mock
