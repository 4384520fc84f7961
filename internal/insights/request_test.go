package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestFiscalYear(t *testing.T) {
	tests := []struct {
		month time.Month
		want  int
	}{
		{time.January, 2023},
		{time.February, 2023},
		{time.March, 2023},
		{time.April, 2024},
		{time.July, 2024},
		{time.December, 2024},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			now := time.Date(2024, tt.month, 15, 12, 0, 0, 0, time.UTC)
			assert.Equal(t, tt.want, LatestFiscalYear(now))
		})
	}
}

func TestResolveYears_Count(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  []string
	}{
		{"default", 0, []string{"2020", "2021", "2022", "2023", "2024"}},
		{"one", 1, []string{"2024"}},
		{"negative clamps to one", -4, []string{"2024"}},
		{"clamped to ten", 25, []string{"2015", "2016", "2017", "2018", "2019", "2020", "2021", "2022", "2023", "2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveYears(Request{YearCount: tt.count}, 5, july2024)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveYears_Explicit(t *testing.T) {
	got, err := ResolveYears(Request{Years: []string{"2023", " 2021", "2023", "", "2022"}}, 5, july2024)
	require.NoError(t, err)
	assert.Equal(t, []string{"2021", "2022", "2023"}, got)

	_, err = ResolveYears(Request{Years: []string{"", " "}}, 5, july2024)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ResolveYears(Request{Years: []string{"23"}}, 5, july2024)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	many := []string{"2010", "2011", "2012", "2013", "2014", "2015", "2016", "2017", "2018", "2019", "2020"}
	_, err = ResolveYears(Request{Years: many}, 5, july2024)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestParseYearsList(t *testing.T) {
	assert.Nil(t, ParseYearsList(""))
	assert.Equal(t, []string{"2021", "2022"}, ParseYearsList("2021, 2022,"))
}
