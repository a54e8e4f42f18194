package csvenc

import (
	"encoding/csv"
	"strings"
	"testing"
)

func TestEncode_PlainRows(t *testing.T) {
	out, err := Encode([]string{"a", "b"}, [][]string{{"1", "2"}, {"3", "4"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if !strings.HasPrefix(out, BOM) {
		t.Error("output missing BOM")
	}
	if strings.TrimPrefix(out, BOM) != "a,b\n1,2\n3,4\n" {
		t.Errorf("output = %q", out)
	}
}

func TestEncode_QuotingRules(t *testing.T) {
	out, err := Encode([]string{"text"}, [][]string{
		{`He said "hi", then left` + "\nnext line"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := `"He said ""hi"", then left` + "\nnext line\"\n"
	if got := strings.TrimPrefix(out, BOM); got != "text\n"+want {
		t.Errorf("output = %q, want %q", got, "text\n"+want)
	}
}

func TestEncode_InjectionNeutralized(t *testing.T) {
	out, err := Encode([]string{"text"}, [][]string{{"=1+1"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if !strings.Contains(out, "'=1+1") {
		t.Errorf("formula not neutralized: %q", out)
	}
}

func TestSanitize_TriggerCharacters(t *testing.T) {
	cases := map[string]string{
		"=SUM(A1)":  "'=SUM(A1)",
		"+1":        "'+1",
		"-1":        "'-1",
		"@cmd":      "'@cmd",
		"\tx":       "'\tx",
		"\rx":       "'\rx",
		"plain":     "plain",
		"a=b":       "a=b",
		"":          "",
		"'already":  "'already",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

// Encoding then parsing with the stdlib reader must reproduce the sanitized
// values exactly, including embedded newlines and quotes.
func TestEncode_RoundTrip(t *testing.T) {
	rows := [][]string{
		{"plain", "with,comma", `with "quote"`},
		{"multi\nline", "", "trailing space "},
	}
	out, err := Encode([]string{"a", "b", "c"}, rows)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, BOM)))
	parsed, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse generated CSV: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(parsed))
	}
	for i, row := range rows {
		for j, want := range row {
			if parsed[i+1][j] != want {
				t.Errorf("row %d field %d = %q, want %q", i, j, parsed[i+1][j], want)
			}
		}
	}
}

func TestEncode_RowWidthMismatch(t *testing.T) {
	if _, err := Encode([]string{"a", "b"}, [][]string{{"only one"}}); err == nil {
		t.Fatal("expected error for short row")
	}
}

func TestEncode_EmptyHeader(t *testing.T) {
	if _, err := Encode(nil, nil); err == nil {
		t.Fatal("expected error for empty header")
	}
}
