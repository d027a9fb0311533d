package forecast

import (
	"strings"
	"testing"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2015-07-01", "2015/07/01", "07/01/2015", "7/1/2015", "July 1, 2015", " 2015-07-01 "} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}
	_, err := ParseDate("first of july")
	assert.Error(t, err)
}

func TestReadCSVWithHeaderAndUnsortedRows(t *testing.T) {
	in := "\ufeffdate,price\n2024-01-03,101\n2024-01-02,100\n\n2024-01-04, 102.5\n"
	s, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 100.0, s.First().Price)
	assert.Equal(t, 102.5, s.Last().Price)
}

func TestReadCSVWithoutHeader(t *testing.T) {
	s, err := ReadCSV(strings.NewReader("2024-01-31,10\n2024-02-29,11\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestReadCSVErrors(t *testing.T) {
	tests := map[string]string{
		"bad price":      "2024-01-02,abc\n2024-01-03,1\n",
		"extra column":   "2024-01-02,1,2\n2024-01-03,1\n",
		"duplicate date": "2024-01-02,1\n2024-01-02,2\n",
		"bad date":       "2024-01-02,1\nnot-a-date,2\n",
		"non-positive":   "2024-01-02,1\n2024-01-03,0\n",
		"too short":      "date,price\n2024-01-02,1\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(in))
			assert.ErrorIs(t, err, xerrors.ErrInvalidPriceSeries)
		})
	}
}
