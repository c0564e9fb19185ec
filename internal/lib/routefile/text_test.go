package routefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "  Best   photo\nspot ", "Best photo spot"},
		{"line breaks", "Kickstands up at 9:00<br>Bring layers &amp; water", "Kickstands up at 9:00 Bring layers & water"},
		{"paragraphs", "<p>Open</p><p>Daily</p>", "Open Daily"},
		{"links", `Menu: <a href="https://example.com">here</a>`, "Menu: here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}
