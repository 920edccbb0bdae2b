package deck

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedQ     string
		expectedA     string
		expectedD     string
		expectedTags  []string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: Haus\nA: house",
			expectedCards: 1,
			expectedQ:     "Haus",
			expectedA:     "house",
		},
		{
			name:          "Q, A, D and T",
			input:         "Q: laufen\nA: to run\nD: irregular verb\nT: Verbs, German",
			expectedCards: 1,
			expectedQ:     "laufen",
			expectedA:     "to run",
			expectedD:     "irregular verb",
			expectedTags:  []string{"verbs", "german"},
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedQ:     "What are the primary colors?",
			expectedA:     "Red\nBlue\nYellow",
		},
		{
			name: "Two Cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "Separator",
			input: `Q: one
A: 1
---
Q: two
A: 2
---
`,
			expectedCards: 2,
		},
		{
			name:          "Lines after tags are ignored",
			input:         "Q: Baum\nA: tree\nT: nouns\nsome note",
			expectedCards: 1,
			expectedQ:     "Baum",
			expectedA:     "tree",
			expectedTags:  []string{"nouns"},
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedQ:     "Question",
			expectedA:     "Answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}

			if tc.expectedCards == 1 {
				card := cards[0]
				if card.Prompt != tc.expectedQ {
					t.Errorf("Expected Prompt to be '%s', but got '%s'", tc.expectedQ, card.Prompt)
				}
				if card.Answer != tc.expectedA {
					t.Errorf("Expected Answer to be '%s', but got '%s'", tc.expectedA, card.Answer)
				}
				if card.Description != tc.expectedD {
					t.Errorf("Expected Description to be '%s', but got '%s'", tc.expectedD, card.Description)
				}
				if len(tc.expectedTags) > 0 && !reflect.DeepEqual(card.Tags, tc.expectedTags) {
					t.Errorf("Expected Tags to be %v, but got %v", tc.expectedTags, card.Tags)
				}
			}
		})
	}
}

func TestCardNewQuestion(t *testing.T) {
	nq := Card{Prompt: "Haus", Answer: "house"}.NewQuestion()
	if nq.Description != nil {
		t.Errorf("Expected no description, got %q", *nq.Description)
	}

	nq = Card{Prompt: "Haus", Answer: "house", Description: "building"}.NewQuestion()
	if nq.Description == nil || *nq.Description != "building" {
		t.Errorf("Expected description 'building', got %v", nq.Description)
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("nouns.md", "Q: Haus\nA: house\n---\nQ: Baum\nA: tree\n")
	write("verbs/laufen.MD", "Q: laufen\nA: to run\n")
	write("notes.txt", "Q: ignored\nA: ignored\n")
	write(".git/HEAD.md", "Q: ignored\nA: ignored\n")

	cards, parseErrs, err := ParseDir(dir)
	if err != nil {
		t.Fatalf("ParseDir() returned an unexpected error: %v", err)
	}
	if len(parseErrs) != 0 {
		t.Fatalf("Expected no parse errors, got %v", parseErrs)
	}
	if len(cards) != 3 {
		t.Fatalf("Expected 3 cards, but got %d", len(cards))
	}
}
