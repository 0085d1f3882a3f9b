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


// Package retrieval grounds a persona's replies in its indexed documents.
//
// A Retriever embeds the user's query and looks up the nearest chunks in
// the persona's vector collection. Every lookup ends in an Outcome with one
// of three statuses:
//   - Hit: one or more chunks were found
//   - Empty: the lookup worked but nothing came back
//   - Failed: the lookup could not be done; the error is kept for logging
//
// A Builder turns the persona profile, the Outcome and the conversation
// history into the message sequence handed to the generator. Failed and
// Empty outcomes both produce a persona-only prompt, so retrieval never
// blocks a reply.
package retrieval
