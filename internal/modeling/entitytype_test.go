// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTypeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Laptop", false},
		{"with digits", "Laptop2", false},
		{"with underscore", "office_chair", false},
		{"unicode letter", "Büro", false},
		{"max length", strings.Repeat("a", MaxTypeNameLength), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxTypeNameLength+1), true},
		{"leading digit", "2Laptop", true},
		{"leading underscore", "_Laptop", true},
		{"space", "office chair", true},
		{"hyphen", "office-chair", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTypeName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
