package nbbo

import "testing"

func TestParseQuoteLine(t *testing.T) {
	q, err := ParseQuoteLine("20200102,09:30:00.123,P,100.01,5,100.02,7,R,X")
	if err != nil {
		t.Fatalf("ParseQuoteLine: %v", err)
	}
	if q.Day != 20200102 {
		t.Errorf("Day = %d", q.Day)
	}
	wantMs := int64((9*3600+30*60)*1000 + 123)
	if q.TimeMs != wantMs {
		t.Errorf("TimeMs = %d, want %d", q.TimeMs, wantMs)
	}
	if q.Venue != 'P' || q.Cond != 'R' {
		t.Errorf("Venue = %c, Cond = %c", q.Venue, q.Cond)
	}
	if q.Bid != 100.01 || q.BidSize != 5 || q.Ask != 100.02 || q.AskSize != 7 {
		t.Errorf("prices/sizes = %v %v %v %v", q.Bid, q.BidSize, q.Ask, q.AskSize)
	}
}

func TestParseQuoteLineTrailingFieldsIgnored(t *testing.T) {
	_, err := ParseQuoteLine("20200102,09:30:00.000,T,10,1,10.01,1,R,a,b,c,d")
	if err != nil {
		t.Fatalf("trailing fields should be ignored: %v", err)
	}
}

func TestParseQuoteLineErrors(t *testing.T) {
	lines := []string{
		"",
		"20200102,09:30:00.000,P,100.01,5,100.02,7", // too few fields
		"2020x102,09:30:00.000,P,100.01,5,100.02,7,R,",
		"20200102,9:30:00.000,P,100.01,5,100.02,7,R,", // short time
		"20200102,09:30:00.000,PQ,100.01,5,100.02,7,R,",
		"20200102,09:30:00.000,P,abc,5,100.02,7,R,",
		"20200102,25:30:00.000,P,100.01,5,100.02,7,R,",
	}
	for _, line := range lines {
		if _, err := ParseQuoteLine(line); err == nil {
			t.Errorf("ParseQuoteLine(%q) succeeded, want error", line)
		}
	}
}
