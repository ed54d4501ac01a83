package contacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/config"
)

func TestContact_Email(t *testing.T) {
	c := Contact{"email": "  a@x.com ", "courriel": "b@x.com"}
	assert.Equal(t, "a@x.com", c.Email(""))
	assert.Equal(t, "a@x.com", c.Email("email"))
	assert.Equal(t, "b@x.com", c.Email("courriel"))
	assert.Equal(t, "", c.Email("missing"))

	v, ok := c.Get("courriel")
	assert.True(t, ok)
	assert.Equal(t, "b@x.com", v)
	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	src, err := New(config.SourceConfig{Kind: "csv", Path: "c.csv"})
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)
	assert.Equal(t, "csv:c.csv", src.Describe())

	src, err = New(config.SourceConfig{Kind: "sqlite", Path: "c.db", Query: "SELECT email FROM t"})
	require.NoError(t, err)
	require.IsType(t, &SQLiteSource{}, src)
	assert.Equal(t, "SELECT email FROM t", src.(*SQLiteSource).Query())

	_, err = New(config.SourceConfig{Kind: "xlsx"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConfig))
}

func TestLimit(t *testing.T) {
	all := []Contact{{"email": "1"}, {"email": "2"}, {"email": "3"}, {"email": "4"}, {"email": "5"}}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "unlimited", n: 0, want: 5},
		{name: "negative is unlimited", n: -1, want: 5},
		{name: "cap below size", n: 3, want: 3},
		{name: "cap above size", n: 10, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := NewSliceIterator(all)
			got, err := Collect(Limit(base, tt.n))
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			assert.Equal(t, all[:tt.want], got)
			assert.True(t, base.Closed(), "closing the limited iterator closes the source")
		})
	}
}

func TestLimit_DoesNotReadPastCap(t *testing.T) {
	base := NewSliceIterator([]Contact{{"email": "1"}, {"email": "2"}, {"email": "3"}})
	it := Limit(base, 1)
	require.True(t, it.Next())
	assert.False(t, it.Next())
	assert.Equal(t, 0, base.pos, "underlying iterator advanced only once")
}
