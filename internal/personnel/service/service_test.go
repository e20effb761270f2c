package service

import (
	"testing"

	"tourvisit_backend/platform/apperr"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"empty passes through", "", "", false},
		{"e164 kept", "+31612345678", "+31612345678", false},
		{"national normalized", "06 1234 5678", "+31612345678", false},
		{"foreign e164 kept", "+4915112345678", "+4915112345678", false},
		{"garbage rejected", "not-a-number", "", true},
		{"too short rejected", "12", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizePhone(tc.in)
			if tc.wantErr {
				if apperr.GetKind(err) != apperr.KindValidation {
					t.Errorf("normalizePhone(%q) expected validation error, got %q, %v", tc.in, got, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("normalizePhone(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
			}
		})
	}
}
