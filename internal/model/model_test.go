package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseServerNumber(t *testing.T) {
	testcases := []struct {
		name    string
		input   string
		want    ServerNumber
		wantErr bool
	}{
		{"numeric", "555121", 555121, false},
		{"surrounding whitespace", " 555121\n", 555121, false},
		{"empty", "", 0, true},
		{"blank", "   ", 0, true},
		{"not a number", "hogzilla", 0, true},
		{"float", "12.5", 0, true},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseServerNumber(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidServerNumber)
				return
			}

			assert.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMutationResultJSON(t *testing.T) {
	testcases := []struct {
		name   string
		result MutationResult
		want   string
	}{
		{
			"boot status set",
			MutationSuccess(FieldBootStatus, "Done"),
			`{"operation":"success","status_set":"Done"}`,
		},
		{
			"boot os set",
			MutationSuccess(FieldBootOS, "Gentoo"),
			`{"operation":"success","os_set":"Gentoo"}`,
		},
		{
			"device not found",
			MutationFailure(ReasonDeviceNotFound),
			`{"operation":"failure","reason":"unable to locate device"}`,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.result)
			assert.Nil(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}
