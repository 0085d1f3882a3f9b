// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the model services used in Mimesis.
//
// Two capabilities are needed: turning text into vectors for similarity
// search, and turning a list of chat messages into a reply. Both sit behind
// interfaces so ingestion and chat can be tested without a model server.
//
//   - Embedder: Generates vector embeddings from text
//   - Generator: Produces text from chat messages
//   - AIProvider: Aggregates both for initialization and shutdown
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs through langchaingo
//   - ai/mock: Test doubles with call counting and injectable behavior
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can reach CallCount and the WithXFunc hooks.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	reply, err := provider.Generator().Generate(ctx, msgs, ai.GenerateOptions{})
package ai
