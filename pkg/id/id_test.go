package id

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  []byte
		n    int
		want string
	}{
		{name: "zero", src: []byte{0, 0}, n: 4, want: "0000"},
		{name: "one", src: []byte{0, 1}, n: 4, want: "0001"},
		{name: "thirty one", src: []byte{0x1F}, n: 2, want: "0Z"},
		{name: "thirty two", src: []byte{0x20}, n: 2, want: "10"},
		{name: "all ones 16 bits", src: []byte{0xFF, 0xFF}, n: 4, want: "1ZZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, encode(tt.src, tt.n))
		})
	}
}

func TestNewULID(t *testing.T) {
	t.Parallel()

	a := NewULID()
	assert.Len(t, a, 26)
	for _, c := range a {
		assert.True(t, strings.ContainsRune(alphabet, c), "unexpected char %q", c)
	}
	assert.LessOrEqual(t, a[0], byte('7'), "top digit holds only 3 bits")

	time.Sleep(2 * time.Millisecond)
	b := NewULID()
	assert.Less(t, a[:10], b[:10])
	assert.NotEqual(t, a, b)
}

func TestNewShortID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		s := NewShortID()
		assert.Len(t, s, 16)
		_, dup := seen[s]
		assert.False(t, dup)
		seen[s] = struct{}{}
	}
}
