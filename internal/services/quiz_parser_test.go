package services

import "testing"

const wellFormedQuiz = `Here is your quiz:

Q1. What is 2 + 2?
A) 3
B) 4
C) 5
D) 22
Answer: B

**Q2.** Which gas do plants absorb?
A. Oxygen
B. Nitrogen
C. Carbon dioxide
D. Helium
Answer: C

Question 3: Who wrote Hamlet?
a) Marlowe
b) Shakespeare
c) Chaucer
d) Milton
Correct answer: (b)
`

func TestParseQuizWellFormed(t *testing.T) {
	questions := ParseQuiz(wellFormedQuiz)
	if len(questions) != 3 {
		t.Fatalf("parsed %d questions, want 3: %+v", len(questions), questions)
	}

	if questions[0].Question != "What is 2 + 2?" || questions[0].Answer != "B" {
		t.Fatalf("unexpected first question %+v", questions[0])
	}
	if got := questions[1].Options[2]; got != "Carbon dioxide" {
		t.Fatalf("option C = %q", got)
	}
	if questions[2].Answer != "B" || questions[2].Options[1] != "Shakespeare" {
		t.Fatalf("unexpected third question %+v", questions[2])
	}
}

func TestParseQuizGarbage(t *testing.T) {
	for _, raw := range []string{"", "I cannot create a quiz right now.", "Q1.\nQ2.\nAnswer: Z"} {
		questions := ParseQuiz(raw)
		if questions == nil {
			t.Fatalf("ParseQuiz(%q) returned nil", raw)
		}
		if len(questions) != 0 {
			t.Fatalf("ParseQuiz(%q) = %+v, want empty", raw, questions)
		}
	}
}

func TestParseQuizDropsIncompleteBlocks(t *testing.T) {
	raw := `Q1. Complete question?
A) one
B) two
C) three
D) four
Answer: A

Q2. Missing an option?
A) one
B) two
C) three
Answer: B

Q3. Missing the answer?
A) one
B) two
C) three
D) four`

	questions := ParseQuiz(raw)
	if len(questions) != 1 || questions[0].Question != "Complete question?" {
		t.Fatalf("ParseQuiz() = %+v, want only the complete question", questions)
	}
}

func TestParseQuizLetterQInsideText(t *testing.T) {
	raw := `Q1. What does Q stand for in the formula Q = mc?
A) Quality
B) Heat
C) Quantity of charge
D) Queue
Answer: B`

	questions := ParseQuiz(raw)
	if len(questions) != 1 {
		t.Fatalf("parsed %d questions, want 1", len(questions))
	}
	if questions[0].Question != "What does Q stand for in the formula Q = mc?" {
		t.Fatalf("question text = %q", questions[0].Question)
	}
}
