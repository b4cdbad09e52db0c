package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  Reference
		valid bool
	}{
		{
			name:  "check-in link",
			raw:   "https://x/check-in/ev_1?pk=g-1",
			want:  Reference{EventID: "ev_1", TicketKey: "g-1"},
			valid: true,
		},
		{
			name:  "ticket page link",
			raw:   "https://x/e/ticket/evt_2?pk=g-2",
			want:  Reference{EventID: "evt_2", TicketKey: "g-2"},
			valid: true,
		},
		{
			name:  "surrounding whitespace and extra slashes",
			raw:   "  https://luma.com//check-in//ev_42/?utm=qr&pk=g-99 \n",
			want:  Reference{EventID: "ev_42", TicketKey: "g-99"},
			valid: true,
		},
		{
			name:  "encoded slash stays in the event segment",
			raw:   "https://x/check-in/ev%2F1?pk=a",
			want:  Reference{EventID: "ev/1", TicketKey: "a"},
			valid: true,
		},
		{
			name:  "encoded characters in ticket page link",
			raw:   "https://x/e/ticket/evt%202?pk=g%2B2",
			want:  Reference{EventID: "evt 2", TicketKey: "g+2"},
			valid: true,
		},
		{
			name: "missing pk",
			raw:  "https://x/check-in/ev_1",
			want: Reference{EventID: "ev_1"},
		},
		{
			name: "ticket without e prefix",
			raw:  "https://x/ticket/evt_2?pk=g-2",
			want: Reference{TicketKey: "g-2"},
		},
		{
			name: "check-in without event segment",
			raw:  "https://x/check-in?pk=g-1",
			want: Reference{TicketKey: "g-1"},
		},
		{
			name: "plain text",
			raw:  "hello world",
		},
		{
			name: "relative path",
			raw:  "/check-in/ev_1?pk=g-1",
		},
		{
			name: "empty",
			raw:  "",
		},
		{
			name: "broken escape",
			raw:  "https://x/check-in/%zz?pk=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, got.Valid())
		})
	}
}

func TestReferenceValid(t *testing.T) {
	assert.False(t, Reference{}.Valid())
	assert.False(t, Reference{EventID: "ev"}.Valid())
	assert.False(t, Reference{TicketKey: "pk"}.Valid())
	assert.True(t, Reference{EventID: "ev", TicketKey: "pk"}.Valid())
}
