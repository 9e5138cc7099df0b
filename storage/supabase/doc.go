// Package supabase implements storage.ChunkStore over the Supabase REST API.
//
// Similarity search calls the match_documents Postgres function through the
// PostgREST RPC endpoint; inserts go to the documents table. Requests carry
// the project key both as the apikey header and as a bearer token.
package supabase
