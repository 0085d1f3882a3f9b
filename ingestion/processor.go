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


package ingestion

import (
	"context"

	"github.com/poiesic/mimesis/core"
)

// batch is the shared input of one ingestion run.
// Processors read it and must not modify it.
type batch struct {
	personaName string
	fullText    string
	chunks      []core.Chunk
	replace     bool
}

// processor is an internal interface for the independent side effects of
// an ingestion run. Each processor runs on its own worker pool.
type processor interface {
	// process applies the processor's side effect for the batch.
	process(ctx context.Context, b *batch) (outcome, error)
}

// outcome carries per-processor results back to the pipeline.
type outcome struct {
	personaCreated bool
	persona        *core.Persona
	indexed        int
	collection     string
}
