package service

import "testing"

func TestParseClockMinute(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"17:30", 1050, false},
		{"00:00", 0, false},
		{"24:00", 1440, false},
		{"24:30", 0, true},
		{"9", 0, true},
		{"ab:cd", 0, true},
		{"12:75", 0, true},
	}

	for _, tc := range tests {
		got, err := parseClockMinute(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseClockMinute(%q) expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("parseClockMinute(%q) = %d, %v, want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestSeedSiteToSite(t *testing.T) {
	entry := seedSite{
		Name:                   "Keukenhof",
		Timezone:               "Europe/Amsterdam",
		OpenTime:               "09:00",
		CloseTime:              "17:00",
		SlotGranularityMinutes: 0,
	}

	site, err := entry.toSite()
	if err != nil {
		t.Fatalf("toSite: %v", err)
	}
	if site.OpenMinute != 540 || site.CloseMinute != 1020 {
		t.Errorf("operating window = [%d, %d], want [540, 1020]", site.OpenMinute, site.CloseMinute)
	}
	if site.SlotGranularityMinutes != 30 {
		t.Errorf("granularity default = %d, want 30", site.SlotGranularityMinutes)
	}

	entry.CloseTime = "08:00"
	if _, err := entry.toSite(); err == nil {
		t.Error("close before open should be rejected")
	}
}
