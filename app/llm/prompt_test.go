package llm

import (
	"strings"
	"testing"
)

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt("local AI", "models that run on consumer hardware")

	if !strings.Contains(prompt, "track new developments in local AI") {
		t.Error("Expected topic in the intro")
	}
	if !strings.Contains(prompt, "The focus area covers: models that run on consumer hardware.") {
		t.Error("Expected description in the focus area line")
	}
	if !strings.Contains(prompt, "# local AI Scout — [Date]") {
		t.Error("Expected topic in the output format header")
	}

	// Structural sections the model is steered by
	for _, section := range []string{
		"## 🔥 Top Signal",
		"## 💬 Notable Voices",
		"## 📈 Trend Watch",
		"## 🗑️ Filtered Out",
		"CivitAI posts are model/resource listings",
	} {
		if !strings.Contains(prompt, section) {
			t.Errorf("Expected prompt to contain %q", section)
		}
	}

	// The literal percentage must survive the format call
	if !strings.Contains(prompt, "90%") {
		t.Error("Expected literal percentage in quality rules")
	}
	if strings.Contains(prompt, "%!") {
		t.Errorf("Format verb mismatch in prompt")
	}
}
