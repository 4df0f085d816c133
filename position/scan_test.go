package position

import (
	"testing"
)

func TestReplacePlaceholders(t *testing.T) {
	in := `<img src="kindle:embed:0004?mime=image/jpeg"/><link href="kindle:flow:0001?mime=text/css"/><img src="KINDLE:EMBED:000A">`
	var seen []Placeholder
	got := ReplacePlaceholders(in, func(p Placeholder) string {
		seen = append(seen, p)
		return "[" + p.Kind + p.ID + "]"
	})
	want := `<img src="[embed0004]"/><link href="[flow0001]"/><img src="[embed000A]">`
	if got != want {
		t.Errorf("ReplacePlaceholders = %q, want %q", got, want)
	}
	if len(seen) != 3 {
		t.Fatal("Placeholders seen:", len(seen))
	}
	if seen[0].Mime != "image/jpeg" || seen[1].Mime != "text/css" || seen[2].Mime != "" {
		t.Errorf("Unexpected MIME types: %+v", seen)
	}
	if seen[0].Matched != "kindle:embed:0004?mime=image/jpeg" {
		t.Errorf("Matched = %q", seen[0].Matched)
	}
	if i, err := seen[2].Index(); err != nil || i != 10 {
		t.Errorf("Index of 000A = %d, %v", i, err)
	}
}

func TestFindPlaceholder(t *testing.T) {
	p, ok := FindPlaceholder(`href="kindle:flow:0002?mime=image/svg+xml"`)
	if !ok || p.Kind != Flow || p.ID != "0002" || p.Mime != "image/svg+xml" {
		t.Errorf("FindPlaceholder = %+v, %v", p, ok)
	}
	if _, ok := FindPlaceholder(`href="style.css"`); ok {
		t.Error("Placeholder found in plain href")
	}
	if _, err := (Placeholder{Kind: Embed, ID: "0_1"}).Index(); err == nil {
		t.Error("Expected error for bad id")
	}
}

func TestFragmentSelector(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`<div id="c1"><p>text</p></div>`, `[id="c1"]`},
		{`<a name='note'>`, `[name="note"]`},
		{`<p class="x" aid="0G">`, `[aid="0G"]`},
		{`<p ID = "Up">`, `[ID="Up"]`},
		{`<p class="x">no anchors</p>`, ""},
		{`<p data-id="x">`, ""},
	}
	for _, tt := range tests {
		if got := FragmentSelector(tt.in); got != tt.want {
			t.Errorf("FragmentSelector(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
