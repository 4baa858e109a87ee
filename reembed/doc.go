// Package reembed rebuilds the stored vectors of an agent's knowledge
// base with a different embedding model.
//
// Switching embedding models invalidates every stored vector: vectors
// from different models are not comparable, and a source's chunks must
// all carry the same model. The Reembedder walks an agent's ready
// sources, re-embeds each source's chunk contents with the target
// model, and swaps the source's chunks wholesale so the
// one-model-per-source constraint is never violated. Sources already
// at the target model are skipped.
package reembed
