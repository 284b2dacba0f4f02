// SPDX-License-Identifier: MIT
package tickets

import (
	"strings"
	"testing"
)

func TestClarifyingQuestionsAllMissing(t *testing.T) {
	got := clarifyingQuestions("it just breaks, fix it")
	if len(got) != maxClarifyingQuestions {
		t.Fatalf("expected %d questions, got %d", maxClarifyingQuestions, len(got))
	}
}

func TestClarifyingQuestionsSkipPresentFacts(t *testing.T) {
	text := `Running version v2.3 on Ubuntu inside Docker.

Error log:
` + "```" + `
level=error msg="it broke"
` + "```" + `

Steps to reproduce:
1. start the app
2. wait

I expected it to stay up, instead it restarts.`

	got := clarifyingQuestions(text)
	if len(got) != 0 {
		t.Fatalf("expected no questions for a complete report, got %v", got)
	}
}

func TestClarifyingQuestionsPartial(t *testing.T) {
	got := clarifyingQuestions("Running version v2.3, it crashes sometimes")
	if len(got) == 0 {
		t.Fatal("expected some questions")
	}
	for _, q := range got {
		if strings.Contains(q, "version of the software") {
			t.Errorf("version question asked although version is present: %v", got)
		}
	}
}
