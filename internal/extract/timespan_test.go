package extract

import "testing"

func TestFormatTimespan(t *testing.T) {
	tests := []struct {
		name       string
		begin, end string
		want       string
	}{
		{"whole year", "1800-01-01T00:00:00Z", "1800-12-31T00:00:00Z", "1800"},
		{"whole year BC", "-0500-01-01T00:00:00Z", "-0500-12-31T00:00:00Z", "500 BC"},
		{"year range", "1503-01-01T00:00:00Z", "1506-12-31T23:59:59Z", "1503 to 1506"},
		{"year range across era", "-0010-01-01T00:00:00Z", "0010-12-31T00:00:00Z", "10 BC to 10"},
		{"whole month", "1990-03-01T00:00:00Z", "1990-03-31T00:00:00Z", "March 1990"},
		{"month range same year", "1990-03-01T00:00:00Z", "1990-05-31T00:00:00Z", "March to May 1990"},
		{"month range across years", "1990-11-01T00:00:00Z", "1991-02-28T00:00:00Z", "November 1990 to February 1991"},
		{"leap february", "2000-02-01T00:00:00Z", "2000-02-29T00:00:00Z", "February 2000"},
		{"non leap february end", "1900-02-01T00:00:00Z", "1900-02-28T00:00:00Z", "February 1900"},
		{"days same month", "1990-03-05T00:00:00Z", "1990-03-12T00:00:00Z", "5 to 12 March 1990"},
		{"days across months", "1990-03-05T00:00:00Z", "1990-04-12T00:00:00Z", "5 March 1990 to 12 April 1990"},
		{"single day", "1990-03-05T00:00:00Z", "1990-03-05T23:59:59Z", "5 to 5 March 1990"},
		{"begin only", "1889-07-16T00:00:00Z", "", "16 July 1889"},
		{"end only", "", "1889-12-31T00:00:00Z", "31 December 1889"},
		{"unparseable", "circa 1800", "unknown", ""},
		{"both empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimespan(tt.begin, tt.end); got != tt.want {
				t.Errorf("FormatTimespan(%q, %q) = %q, want %q", tt.begin, tt.end, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("-12000-06-15T00:00:00Z")
	if !ok || d.Year != -12000 || d.Month != 6 || d.Day != 15 {
		t.Errorf("unexpected date %+v (%v)", d, ok)
	}
	if _, ok := ParseDate("1990-03-05"); ok {
		t.Error("expected date without time part to be rejected")
	}
	if _, ok := ParseDate("1990-13-05T00:00:00Z"); ok {
		t.Error("expected month 13 to be rejected")
	}
}
