package translate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestTextUnsupportedLanguageReturnsOriginal(t *testing.T) {
	provider := &fakeProvider{}
	tr := NewTranslator(provider)

	for _, lang := range []string{"xx", "en", ""} {
		if got := tr.Text(context.Background(), "Hello", lang); got != "Hello" {
			t.Fatalf("lang %q: expected original text, got %q", lang, got)
		}
	}
	if provider.callCount() != 0 {
		t.Fatalf("provider should not be called, got %d calls", provider.callCount())
	}
}

func TestTextTranslates(t *testing.T) {
	tr := NewTranslator(&fakeProvider{})
	if got := tr.Text(context.Background(), "Hello", "es"); got != "[es] Hello" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestTextFallsBackOnError(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	tr := NewTranslator(&fakeProvider{fail: map[string]bool{"Hello": true}}, WithLogger(logger))

	if got := tr.Text(context.Background(), "Hello", "de"); got != "Hello" {
		t.Fatalf("expected original text on failure, got %q", got)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning to be logged, got %+v", entry)
	}
}

func TestTextTimesOut(t *testing.T) {
	tr := NewTranslator(&fakeProvider{block: true}, WithTimeout(20*time.Millisecond), WithLogger(quietLogger()))

	start := time.Now()
	if got := tr.Text(context.Background(), "Hello", "fr"); got != "Hello" {
		t.Fatalf("expected original text on timeout, got %q", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not applied, call took %v", elapsed)
	}
}

func TestTranslateAllKeepsOrderAndDegradesPerEntry(t *testing.T) {
	provider := &fakeProvider{fail: map[string]bool{"two": true}}
	tr := NewTranslator(provider, WithConcurrency(2), WithLogger(quietLogger()))

	texts := []string{"one", "two", "three", ""}
	got := tr.TranslateAll(context.Background(), texts, "ja")
	want := []string{"[ja] one", "two", "[ja] three", ""}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if texts[0] != "one" {
		t.Fatalf("input slice must not be modified")
	}
}

func TestNilProviderDisablesTranslation(t *testing.T) {
	tr := NewTranslator(nil)
	got := tr.TranslateAll(context.Background(), []string{"a", "b"}, "es")
	if got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected originals, got %v", got)
	}
	if len(tr.Languages()) != 13 || tr.Languages()["tr"] != "Turkish" {
		t.Fatalf("unexpected language table %v", tr.Languages())
	}
}

type fakeProvider struct {
	fail  map[string]bool
	block bool

	mu    sync.Mutex
	calls int
}

func (p *fakeProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if sourceLang != SourceLanguage {
		return "", errors.New("unexpected source language")
	}
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if p.fail[text] {
		return "", errors.New("provider unavailable")
	}
	return "[" + targetLang + "] " + text, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func quietLogger() logrus.FieldLogger {
	logger, _ := logtest.NewNullLogger()
	return logger
}
