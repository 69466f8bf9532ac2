package audit

import "testing"

func TestBrandChecker_ExactMention(t *testing.T) {
	t.Parallel()

	bc := NewBrandChecker([]string{"Adityaram Property", "Adityaram"})
	text := "Good morning sir, this is Uma from Adityaram Property, we received your enquiry."

	mentions := bc.Check(text)
	if len(mentions) == 0 {
		t.Fatal("expected at least one mention")
	}
	found := false
	for _, m := range mentions {
		if m.Text == "adityaram property" && m.Score > 0.99 {
			found = true
		}
	}
	if !found {
		t.Errorf("exact span not reported: %+v", mentions)
	}
}

func TestBrandChecker_SplitRendering(t *testing.T) {
	t.Parallel()

	// Diarized transcripts routinely split the brand into two words.
	bc := NewBrandChecker([]string{"Adityaram"})
	if !bc.Found("thank you for choosing aditya ram properties, have a great day") {
		t.Error("split rendering should be detected")
	}
}

func TestBrandChecker_NoMention(t *testing.T) {
	t.Parallel()

	bc := NewBrandChecker([]string{"Adityaram"})
	if bc.Found("thank you sir, have a great day") {
		t.Error("generic closing must not count as a brand mention")
	}
	if bc.Found("") {
		t.Error("empty text has no mentions")
	}
}

func TestBrandChecker_NoVariants(t *testing.T) {
	t.Parallel()

	bc := NewBrandChecker([]string{"", "   "})
	if bc.Found("adityaram property") {
		t.Error("checker without variants must report nothing")
	}
}
