package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{
			name: "september",
			t:    time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC),
			want: "5-sentabr 2026",
		},
		{
			name: "january first",
			t:    time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			want: "1-yanvar 2027",
		},
		{
			name: "non-utc input normalized",
			t:    time.Date(2026, 12, 31, 23, 0, 0, 0, time.FixedZone("UZT", 5*3600)),
			want: "31-dekabr 2026",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(tt.t))
		})
	}
}
