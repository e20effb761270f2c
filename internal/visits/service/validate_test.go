package service

import (
	"testing"
	"time"

	"tourvisit_backend/platform/apperr"
)

func TestValidateServiceWindows(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2024, 6, 1, h, m, 0, 0, time.UTC)
	}
	visitStart, visitEnd := at(10, 0), at(12, 0)

	tests := []struct {
		name     string
		services []ServiceInput
		wantErr  bool
	}{
		{
			"nested window",
			[]ServiceInput{{ServiceType: "CATERING", StartTime: at(10, 30), EndTime: at(11, 30)}},
			false,
		},
		{
			"window equal to the visit window",
			[]ServiceInput{{ServiceType: "GUIDED_TOUR", StartTime: at(10, 0), EndTime: at(12, 0)}},
			false,
		},
		{
			"no services",
			nil,
			false,
		},
		{
			"service before the visit starts",
			[]ServiceInput{{ServiceType: "CATERING", StartTime: at(8, 0), EndTime: at(9, 0)}},
			true,
		},
		{
			"service running past the visit end",
			[]ServiceInput{{ServiceType: "CATERING", StartTime: at(11, 0), EndTime: at(13, 0)}},
			true,
		},
		{
			"inverted service window",
			[]ServiceInput{{ServiceType: "CATERING", StartTime: at(11, 0), EndTime: at(10, 30)}},
			true,
		},
		{
			"second service out of bounds",
			[]ServiceInput{
				{ServiceType: "CATERING", StartTime: at(10, 30), EndTime: at(11, 0)},
				{ServiceType: "TRANSPORT", StartTime: at(9, 0), EndTime: at(10, 0)},
			},
			true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateServiceWindows(tc.services, visitStart, visitEnd)
			if tc.wantErr && apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
