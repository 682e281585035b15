package whitelist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "access-tool/internal/common/errors"
	condition "access-tool/internal/features/condition/models"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int64
	}{
		{name: "plain", input: "1\n2\n3\n", want: []int64{1, 2, 3}},
		{name: "header and extra columns", input: "user_id,name\n10,alice\n20,bob\n", want: []int64{10, 20}},
		{name: "bom and spaces", input: "\ufeff 5\n 6 \n\n7", want: []int64{5, 6, 7}},
		{name: "duplicates keep first order", input: "3\n1\n3\n2\n1", want: []int64{3, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCSV_BadRow(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("1\nabc\n"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsValidation())
	assert.Contains(t, appErr.Message, "line 2")
}

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON([]byte(`[4, 5, 4]`))
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, got)

	got, err = ParseJSON([]byte(`{"users": [9, 8]}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 8}, got)
}

func TestParseJSON_SchemaViolations(t *testing.T) {
	for _, input := range []string{
		`["1", "2"]`,
		`[1.5]`,
		`[0]`,
		`{"ids": [1]}`,
		`"nope"`,
		`{`,
	} {
		_, err := ParseJSON([]byte(input))
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok, input)
		assert.True(t, appErr.IsValidation(), input)
	}
}

func TestParseFile(t *testing.T) {
	got, err := ParseFile("users.JSON", strings.NewReader(`[1]`))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got)

	_, err = ParseFile("users.xlsx", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseFile("users.csv", strings.NewReader("id\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPatchSetsWhitelistUsers(t *testing.T) {
	c := condition.Condition{Type: condition.TypeWhitelist, Payload: &condition.Whitelist{Users: []int64{}}}
	next, err := c.Apply(Patch([]int64{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, next.Payload.(*condition.Whitelist).Users)
}
