// Package embedder provides text embedding clients used by the vector stores
// to turn content into vectors.
//
// # Supported Providers
//
//   - OpenAI: text-embedding-3-small, text-embedding-3-large, text-embedding-ada-002
//   - OpenAI-compatible services through a custom BaseURL
//
// # Usage
//
//	client := embedder.NewOpenAIEmbedder(apiKey, embedder.Config{
//	    Model:     "text-embedding-3-small",
//	    BatchSize: 32,
//	})
//
//	embeddings, err := client.Embed(ctx, []string{"hello world"})
//
// Embed splits its input into requests of at most BatchSize texts and returns
// one vector per input text, in input order.
package embedder
