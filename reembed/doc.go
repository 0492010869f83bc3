// Package reembed regenerates embeddings for stored insights after an
// embedding model change.
//
// Insights are processed in batches with progress reporting and retry with
// exponential backoff; vectors are normalized before storage so cosine
// similarity search keeps working across model switches.
package reembed
