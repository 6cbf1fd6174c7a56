package query

import (
	"log/slog"
	"regexp"
)

// Match is a single verified hit span within a candidate's full text:
// [Start, End) character offsets.
type Match struct {
	Start int
	End   int
}

// Plan is the (FTS filter, verify function) pair spec.md §4.4 describes
// for a single (query, mode, ignore_punct) request.
type Plan struct {
	Mode Mode

	// FTSQuery is the MATCH expression to run against documents_fts. It is
	// meaningless when FullScan is true.
	FTSQuery string

	// FullScan indicates no usable FTS prefix filter could be built and
	// every document must be scanned (partial mode with no tokens, regex
	// mode with no ≥2-char word run).
	FullScan bool

	// ZeroHits short-circuits the whole query: no document can possibly
	// match (e.g. an empty or all-punctuation query in exact mode), so
	// neither the FTS filter nor a full scan need to run.
	ZeroHits bool

	// Verify runs the mode's verification pattern over one candidate's
	// full text, returning every match in ascending offset order (RE2's
	// FindAllStringIndex already iterates left to right).
	Verify func(fullText string) []Match
}

// Build constructs a Plan for query under mode, honouring ignorePunct.
// Regex-mode compilation failures never propagate: spec.md §7 classifies
// an invalid user pattern as PatternError, which this layer always
// catches, logging a warning and returning a ZeroHits plan.
func Build(rawQuery string, mode Mode, ignorePunct bool) Plan {
	switch mode.kind {
	case modeExact:
		return buildExact(rawQuery, ignorePunct)
	case modePartial:
		return buildPartial(rawQuery, ignorePunct)
	case modeRegex:
		return buildRegex(rawQuery)
	default:
		return Plan{Mode: mode, ZeroHits: true}
	}
}

func buildExact(rawQuery string, ignorePunct bool) Plan {
	tokens := splitTokens(rawQuery)
	if len(tokens) == 0 {
		return Plan{Mode: Exact(), ZeroHits: true}
	}

	body := regexp.QuoteMeta(rawQuery)
	if ignorePunct {
		body = punctInterleavedPattern(rawQuery)
	}
	if body == "" {
		return Plan{Mode: Exact(), ZeroHits: true}
	}

	re, err := regexp.Compile(body)
	if err != nil {
		slog.Warn("query: exact mode pattern failed to compile", "query", rawQuery, "error", err)
		return Plan{Mode: Exact(), ZeroHits: true}
	}

	return Plan{
		Mode:     Exact(),
		FTSQuery: phraseQuery(tokens),
		Verify:   boundaryVerify(re),
	}
}

func buildPartial(rawQuery string, ignorePunct bool) Plan {
	tokens := splitTokens(rawQuery)

	body := regexp.QuoteMeta(rawQuery)
	if ignorePunct {
		body = punctInterleavedPattern(rawQuery)
	}
	if body == "" {
		return Plan{Mode: Partial(), ZeroHits: true}
	}

	re, err := regexp.Compile(body)
	if err != nil {
		slog.Warn("query: partial mode pattern failed to compile", "query", rawQuery, "error", err)
		return Plan{Mode: Partial(), ZeroHits: true}
	}

	plan := Plan{Mode: Partial(), Verify: plainVerify(re)}
	if len(tokens) == 0 {
		plan.FullScan = true
		return plan
	}
	plan.FTSQuery = prefixOrQuery(tokens)
	return plan
}

func buildRegex(rawQuery string) Plan {
	if rawQuery == "" {
		return Plan{Mode: Regex(), ZeroHits: true}
	}

	re, err := regexp.Compile(rawQuery)
	if err != nil {
		slog.Warn("query: regex mode pattern failed to compile", "query", rawQuery, "error", err)
		return Plan{Mode: Regex(), ZeroHits: true}
	}

	plan := Plan{Mode: Regex(), Verify: plainVerify(re)}
	if token, ok := firstWordRun(rawQuery, 2); ok {
		plan.FTSQuery = prefixQuery(token)
	} else {
		plan.FullScan = true
	}
	return plan
}

// plainVerify runs re over fullText with no additional boundary check —
// used by partial and regex modes, where spec.md §4.4 does not wrap the
// verification pattern in word boundaries.
func plainVerify(re *regexp.Regexp) func(string) []Match {
	return func(fullText string) []Match {
		idx := re.FindAllStringIndex(fullText, -1)
		if idx == nil {
			return nil
		}
		out := make([]Match, len(idx))
		for i, pair := range idx {
			out[i] = Match{Start: pair[0], End: pair[1]}
		}
		return out
	}
}

// boundaryVerify runs re over fullText and keeps only matches that sit at
// a Unicode-aware word boundary on both ends (exact mode's `\b…\b`,
// reimplemented manually since RE2's \b is ASCII-only — see boundary.go).
func boundaryVerify(re *regexp.Regexp) func(string) []Match {
	return func(fullText string) []Match {
		idx := re.FindAllStringIndex(fullText, -1)
		if idx == nil {
			return nil
		}
		var out []Match
		for _, pair := range idx {
			if atWordBoundary(fullText, pair[0]) && atWordBoundary(fullText, pair[1]) {
				out = append(out, Match{Start: pair[0], End: pair[1]})
			}
		}
		return out
	}
}
