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


package summarize

import (
	"fmt"
	"strings"

	"github.com/poiesic/docproc/llm"
)

const systemPrompt = `You are a careful document summarizer.
Write a faithful summary in plain prose using only information present in the text.
Do not add headings, bullet points, preambles or commentary about the task.`

func documentLabel(filename string) string {
	if filename == "" {
		return "the following document"
	}
	return fmt.Sprintf("the document %q", filename)
}

func singlePrompt(text, filename string, targetWords int) []llm.Message {
	return []llm.Message{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(fmt.Sprintf("Summarize %s in about %d words.\n\n%s",
			documentLabel(filename), targetWords, text)),
	}
}

func mapPrompt(text, filename string, part, parts, targetWords int) []llm.Message {
	return []llm.Message{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(fmt.Sprintf("This is part %d of %d of %s. Summarize this part in about %d words.\n\n%s",
			part, parts, documentLabel(filename), targetWords, text)),
	}
}

func reducePrompt(partials []string, filename string, targetWords int) []llm.Message {
	var b strings.Builder
	for i, p := range partials {
		fmt.Fprintf(&b, "Part %d: %s\n\n", i+1, p)
	}
	return []llm.Message{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(fmt.Sprintf("Below are summaries of consecutive parts of %s. "+
			"Combine them into one coherent summary of about %d words.\n\n%s",
			documentLabel(filename), targetWords, strings.TrimSpace(b.String()))),
	}
}
