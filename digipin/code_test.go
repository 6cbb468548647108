// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package digipin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"39J-438-TJC7", "39J438TJC7"},
		{"39j438tjc7", "39J438TJC7"},
		{"\t39J 438\nTJC7", "39J438TJC7"},
		{"Ｌｌｌ－ｌｌｌ－ｌｌｌｌ", "LLLLLLLLLL"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatGroups(t *testing.T) {
	got, err := Format("fc98j327k4")
	require.NoError(t, err)
	assert.Equal(t, "FC9-8J3-27K4", got)

	// Separators in other positions are accepted and rewritten.
	got, err = Format("F-C-9-8-J-3-2-7-K-4")
	require.NoError(t, err)
	assert.Equal(t, "FC9-8J3-27K4", got)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("39J-438-TJC7"))
	assert.True(t, Valid("39j438tjc7"))
	assert.False(t, Valid("39J-438-TJC"))
	assert.False(t, Valid("39J-438-TJCX"))
	assert.False(t, Valid("39J_438_TJC7"))
}

func TestCodeErrorMessages(t *testing.T) {
	_, err := Normalize("39J")
	assert.EqualError(t, err, `invalid code length: "39J" has 3 symbols, want 10`)

	_, err = Normalize("39J-438-TJCX")
	assert.EqualError(t, err, `invalid code character 'X' at position 10 in "39J-438-TJCX"`)
}
