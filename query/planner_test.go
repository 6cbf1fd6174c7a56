package query

import "testing"

func TestBuildExactMatchesWholeWordOnly(t *testing.T) {
	plan := Build("שלום", Exact(), false)
	if plan.ZeroHits || plan.FullScan {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.FTSQuery != `"שלום"` {
		t.Errorf("FTSQuery = %q, want %q", plan.FTSQuery, `"שלום"`)
	}

	matches := plan.Verify("שלום עולם, שלומית")
	if len(matches) != 1 {
		t.Fatalf("Verify() = %v, want exactly one match (שלומית must not match)", matches)
	}
	if matches[0].Start != 0 || matches[0].End != len("שלום") {
		t.Errorf("match = %+v, want {0, %d}", matches[0], len("שלום"))
	}
}

func TestBuildExactEmptyQueryIsZeroHits(t *testing.T) {
	plan := Build("", Exact(), false)
	if !plan.ZeroHits {
		t.Errorf("empty query: ZeroHits = false, want true")
	}
}

func TestBuildExactAllPunctuationIsZeroHits(t *testing.T) {
	plan := Build("...", Exact(), false)
	if !plan.ZeroHits {
		t.Errorf("all-punctuation query: ZeroHits = false, want true")
	}
}

func TestBuildPartialMatchesSubstring(t *testing.T) {
	plan := Build("שלו", Partial(), false)
	if plan.ZeroHits || plan.FullScan {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.FTSQuery != "שלו*" {
		t.Errorf("FTSQuery = %q, want %q", plan.FTSQuery, "שלו*")
	}

	matches := plan.Verify("שלום עולם")
	if len(matches) != 1 || matches[0].Start != 0 {
		t.Errorf("Verify() = %v, want a single match at offset 0", matches)
	}
}

func TestBuildPartialEmptyQueryFullScans(t *testing.T) {
	plan := Build("   ", Partial(), false)
	if !plan.FullScan {
		t.Errorf("whitespace-only partial query: FullScan = false, want true")
	}
}

func TestBuildExactIgnorePunct(t *testing.T) {
	// "צה״ל" written plainly should still match text carrying the
	// internal geresh (gershayim) punctuation mark.
	plan := Build("צהל", Exact(), true)
	if plan.ZeroHits {
		t.Fatalf("unexpected ZeroHits: %+v", plan)
	}
	matches := plan.Verify("צה״ל היא הצבא")
	if len(matches) != 1 {
		t.Errorf("Verify() with ignore_punct = %v, want one match spanning the punctuated form", matches)
	}
}

func TestBuildRegexUsesPrefixFilterWhenAvailable(t *testing.T) {
	plan := Build(`\d{3}`, Regex(), false)
	if !plan.FullScan {
		t.Errorf("pattern with no ≥2-char word run should full scan, got prefix filter %q", plan.FTSQuery)
	}

	plan2 := Build(`שלום\d+`, Regex(), false)
	if plan2.FullScan || plan2.FTSQuery == "" {
		t.Errorf("pattern with a word run should use a prefix filter: %+v", plan2)
	}
}

func TestBuildRegexInvalidPatternIsZeroHits(t *testing.T) {
	plan := Build("(unclosed", Regex(), false)
	if !plan.ZeroHits {
		t.Errorf("invalid regex: ZeroHits = false, want true")
	}
}

func TestBuildRegexEmptyIsZeroHits(t *testing.T) {
	plan := Build("", Regex(), false)
	if !plan.ZeroHits {
		t.Errorf("empty regex query: ZeroHits = false, want true")
	}
}

func TestBuildPartialDigitsFTSLimitation(t *testing.T) {
	// FTS5's unicode61 tokenizer does not index single-digit runs the
	// same way arbitrary substrings match in verification: a partial
	// search for a digit still builds a usable prefix filter, but the
	// verification regex is the source of truth for what actually
	// counts as a hit.
	plan := Build("123", Partial(), false)
	matches := plan.Verify("מספר 123456 כאן")
	if len(matches) != 1 {
		t.Errorf("Verify() = %v, want a single substring match", matches)
	}
}
