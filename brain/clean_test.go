package brain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Hey, how was your day?", "Hey, how was your day?"},
		{"emoji stripped", "That's wonderful! 🎉😊", "That's wonderful!"},
		{"bold stripped", "I **really** missed you", "I really missed you"},
		{"italics stripped", "that sounds *exhausting*", "that sounds exhausting"},
		{"headers stripped", "# Today\nwas a good day", "Today\nwas a good day"},
		{"double spaces collapse", "so  much   space", "so much space"},
		{"blank runs collapse", "one\n\n\n\ntwo", "one\n\ntwo"},
		{"surrounding whitespace trimmed", "  hello  ", "hello"},
		{"emoji only becomes empty", "😊🎉", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, clean(tc.in))
		})
	}
}
