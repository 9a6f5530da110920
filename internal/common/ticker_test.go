package common

import (
	"testing"
)

func TestParseTicker(t *testing.T) {
	originalDefault := DefaultExchange
	DefaultExchange = "NASDAQ"
	defer func() { DefaultExchange = originalDefault }()

	tests := []struct {
		input        string
		wantExchange string
		wantCode     string
		wantString   string
		wantEODHD    string
	}{
		// Colon separator
		{"NYSE:IBM", "NYSE", "IBM", "NYSE:IBM", "IBM.US"},
		{"ASX:BHP", "ASX", "BHP", "ASX:BHP", "BHP.AU"},

		// Dot separator with a known exchange
		{"NYSE.IBM", "NYSE", "IBM", "NYSE:IBM", "IBM.US"},
		{"LSE.VOD", "LSE", "VOD", "LSE:VOD", "VOD.LSE"},

		// Dotted code without a known exchange prefix
		{"BRK.B", "NASDAQ", "BRK.B", "NASDAQ:BRK.B", "BRK.B.US"},

		// Bare code uses the default exchange
		{"xyz", "NASDAQ", "XYZ", "NASDAQ:XYZ", "XYZ.US"},
		{"  AAPL  ", "NASDAQ", "AAPL", "NASDAQ:AAPL", "AAPL.US"},

		// Unknown exchange falls back to the US suffix
		{"OTC:ABCD", "OTC", "ABCD", "OTC:ABCD", "ABCD.US"},

		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseTicker(tt.input)

			if result.Exchange != tt.wantExchange {
				t.Errorf("Exchange = %q, want %q", result.Exchange, tt.wantExchange)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.String() != tt.wantString {
				t.Errorf("String() = %q, want %q", result.String(), tt.wantString)
			}
			if result.EODHDSymbol() != tt.wantEODHD {
				t.Errorf("EODHDSymbol() = %q, want %q", result.EODHDSymbol(), tt.wantEODHD)
			}
		})
	}
}

func TestParseTickers_DropsBlanksAndDuplicates(t *testing.T) {
	originalDefault := DefaultExchange
	DefaultExchange = "NASDAQ"
	defer func() { DefaultExchange = originalDefault }()

	got := ParseTickers([]string{"xyz", "", "NASDAQ:XYZ", "  ", "NYSE:IBM"})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%v)", len(got), got)
	}
	if got[0].String() != "NASDAQ:XYZ" {
		t.Errorf("got[0] = %q", got[0].String())
	}
	if got[1].String() != "NYSE:IBM" {
		t.Errorf("got[1] = %q", got[1].String())
	}
}

func TestSetDefaultExchange(t *testing.T) {
	originalDefault := DefaultExchange
	defer func() { DefaultExchange = originalDefault }()

	SetDefaultExchange("asx")
	if DefaultExchange != "ASX" {
		t.Errorf("DefaultExchange = %q, want ASX", DefaultExchange)
	}

	SetDefaultExchange("")
	if DefaultExchange != "ASX" {
		t.Errorf("empty value should not reset DefaultExchange, got %q", DefaultExchange)
	}
}
