package query

import (
	"reflect"
	"testing"
)

func TestSplitTokensHebrewAndPunctuation(t *testing.T) {
	got := splitTokens("שלום, עולם!")
	want := []string{"שלום", "עולם"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitTokens() = %v, want %v", got, want)
	}
}

func TestSplitTokensUnderscoreAndDigits(t *testing.T) {
	got := splitTokens("foo_bar 123")
	want := []string{"foo_bar", "123"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitTokens() = %v, want %v", got, want)
	}
}

func TestSplitTokensEmpty(t *testing.T) {
	got := splitTokens("   ...   ")
	if len(got) != 0 {
		t.Errorf("splitTokens() = %v, want empty", got)
	}
}

func TestWhitespaceTokensKeepsPunctuation(t *testing.T) {
	got := whitespaceTokens("צה״ל היום")
	want := []string{"צה״ל", "היום"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("whitespaceTokens() = %v, want %v", got, want)
	}
}
