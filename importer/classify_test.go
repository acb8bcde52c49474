package importer

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		admit  bool
		reason string
	}{
		{"ShadowPDS", "PDS1", false, "duplicate numbered table"},
		{"ShadowPDSMany", "pds123", false, "duplicate numbered table"},
		{"ShadowRE", "RE2", false, "duplicate numbered table"},
		{"ShadowSCH", "Sch07", false, "duplicate numbered table"},
		{"RealPDS", "PDS", true, ""},
		{"RealRE", "RE", true, ""},
		{"RealSCH", "SCH", true, ""},
		{"DigitsNotSuffix", "PDS1A", true, ""},
		{"OtherPrefix", "MEM1", true, ""},
		{"AskRecNum", "askrecnum", false, "empty duplicate table"},
		{"RecNum", "RECNUM", false, "empty duplicate table"},
		{"RecNumPrefixOnly", "RecNumber", true, ""},
		{"Fund", "FundBalance", false, "giant fund table"},
		{"FundInside", "MemFund", false, "giant fund table"},
		{"FundLower", "pledgefunds", false, "giant fund table"},
		{"Fam", "Fam", true, ""},
		{"Mem", "Mem", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.base)
			if got.Admit != tt.admit {
				t.Errorf("Classify(%q).Admit = %v, want %v", tt.base, got.Admit, tt.admit)
			}
			if got.Reason != tt.reason {
				t.Errorf("Classify(%q).Reason = %q, want %q", tt.base, got.Reason, tt.reason)
			}
		})
	}
}

func TestClassify_ShadowTablesAlwaysRejected(t *testing.T) {
	for _, prefix := range []string{"PDS", "pds", "RE", "re", "SCH", "sch"} {
		for _, digits := range []string{"0", "1", "9", "10", "42", "0001"} {
			if d := Classify(prefix + digits); d.Admit {
				t.Errorf("Classify(%q) admitted a numbered shadow table", prefix+digits)
			}
		}
	}
}
