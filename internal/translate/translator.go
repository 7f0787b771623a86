package translate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Provider performs a single remote translation.
type Provider interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Translator is a best-effort wrapper around a Provider: any failure yields the original text.
type Translator struct {
	provider    Provider
	timeout     time.Duration
	concurrency int
	log         logrus.FieldLogger
	sf          singleflight.Group
}

// Option configures a Translator.
type Option func(*Translator)

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(t *Translator) { t.timeout = d }
}

// WithConcurrency bounds parallel provider calls in TranslateAll.
func WithConcurrency(n int) Option {
	return func(t *Translator) { t.concurrency = n }
}

// WithLogger sets the logger used to report provider failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Translator) { t.log = log }
}

// NewTranslator builds a Translator. A nil provider disables translation.
func NewTranslator(provider Provider, opts ...Option) *Translator {
	t := &Translator{
		provider:    provider,
		timeout:     5 * time.Second,
		concurrency: 8,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Text translates text into lang or returns it unchanged.
func (t *Translator) Text(ctx context.Context, text, lang string) string {
	if text == "" || lang == SourceLanguage || !Supported(lang) || t.provider == nil {
		return text
	}

	// Identical concurrent requests share one provider call.
	v, err, _ := t.sf.Do(lang+"\x00"+text, func() (interface{}, error) {
		callCtx := ctx
		if t.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, t.timeout)
			defer cancel()
		}
		return t.provider.Translate(callCtx, text, SourceLanguage, lang)
	})
	if err != nil {
		t.log.WithError(err).WithField("lang", lang).Warn("translation failed, using original text")
		return text
	}
	translated, _ := v.(string)
	if translated == "" {
		return text
	}
	return translated
}

// TranslateAll translates each text independently. The result has the same length and order as texts.
func (t *Translator) TranslateAll(ctx context.Context, texts []string, lang string) []string {
	out := make([]string, len(texts))
	copy(out, texts)
	if lang == SourceLanguage || !Supported(lang) || t.provider == nil {
		return out
	}

	var g errgroup.Group
	if t.concurrency > 0 {
		g.SetLimit(t.concurrency)
	}
	for i := range texts {
		i := i
		g.Go(func() error {
			out[i] = t.Text(ctx, texts[i], lang)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Languages returns the supported language table.
func (t *Translator) Languages() map[string]string {
	return Languages()
}
