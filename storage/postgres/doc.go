// Package postgres implements storage.ChunkStore over PostgreSQL with pgvector.
//
// Retrieval calls the match_documents SQL function directly, the same
// function a Supabase project exposes through PostgREST. EnsureSchema can
// create the table and function on a fresh database.
package postgres
