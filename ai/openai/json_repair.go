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


package openai

import "strings"

// verdictKeys are the fields of the judge's verdict object. The schema
// is closed, so repair only has to recognize these names.
var verdictKeys = []string{
	"safety_score",
	"groundedness_score",
	"brand_alignment_score",
	"reasoning",
	"flagged",
}

// repairJSON fixes the malformation models produce often enough to
// matter: a verdict key missing its opening quote, as in
// `, flagged": false`. Each occurrence of a known key followed by `":`
// that lacks a quote in front gets one inserted.
func repairJSON(s string) string {
	for _, key := range verdictKeys {
		marker := key + `":`
		search := 0
		for {
			idx := strings.Index(s[search:], marker)
			if idx == -1 {
				break
			}
			idx += search
			if idx == 0 || s[idx-1] != '"' {
				s = s[:idx] + `"` + s[idx:]
				search = idx + len(marker) + 1
			} else {
				search = idx + len(marker)
			}
		}
	}
	return s
}
