package resend

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	html, err := render([]string{"guitar", "<script>"}, 3)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, "next 3 hours") {
		t.Fatalf("missing hours: %s", html)
	}
	if !strings.Contains(html, "<li>guitar</li>") {
		t.Fatalf("missing habit: %s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("habit name not escaped: %s", html)
	}
}
