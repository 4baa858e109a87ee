// Copyright 2026 Tessara Systems
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


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// The embedder talks to the /v1/embeddings endpoint directly over HTTP so
// it can re-order results by the response's per-item index. The judge uses
// the langchaingo chat client in JSON mode and fails closed on verdicts it
// cannot parse.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("https://api.openai.com"),
//	    ai.WithAPIToken(os.Getenv("OPENAI_API_KEY")),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "sample text")
//	verdict, err := provider.Judge().Evaluate(ctx, &ai.JudgeRequest{...})
package openai
