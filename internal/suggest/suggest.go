// Package suggest produces objective and key result suggestions and answers
// free-form questions through a text generator. Generated text only ever
// ends up in title or action fields; nothing here touches the dataset.
package suggest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"okrboard/internal/apperr"
	"okrboard/internal/metrics"
	"okrboard/internal/okr"
)

// Generator turns a prompt into text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	KindObjective = "objective"
	KindKR        = "kr"
	KindAsk       = "ask"
)

// MaxSuggestions bounds how many suggestions are returned per request.
const MaxSuggestions = 3

// Service builds prompts, calls the generator and parses its answers. A nil
// generator means no provider is configured; every call then fails with a
// validation error.
type Service struct {
	gen     Generator
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

type Options struct {
	Generator Generator
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewService(opts Options) *Service {
	s := &Service{gen: opts.Generator, metrics: opts.Metrics, logger: opts.Logger, now: opts.Now}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Enabled reports whether a generator is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.gen != nil
}

// SuggestObjectives asks for three company objective ideas.
func (s *Service) SuggestObjectives(ctx context.Context) ([]string, error) {
	text, err := s.generate(ctx, KindObjective, ObjectivePrompt(s.now().Year()))
	if err != nil {
		return nil, err
	}
	return SplitSuggestions(text), nil
}

// SuggestKRs asks for three key results for the given objective title.
func (s *Service) SuggestKRs(ctx context.Context, objective string) ([]string, error) {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return nil, apperr.Validation("objective required", "enter an objective to get key result suggestions")
	}
	text, err := s.generate(ctx, KindKR, KRPrompt(objective, s.now().Year()))
	if err != nil {
		return nil, err
	}
	return SplitSuggestions(text), nil
}

// Ask answers a question with a compact description of ds as context.
func (s *Service) Ask(ctx context.Context, question string, ds okr.Dataset) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperr.Validation("question required", "enter a question to ask")
	}
	text, err := s.generate(ctx, KindAsk, AskPrompt(question, ds, s.now()))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *Service) generate(ctx context.Context, kind, prompt string) (string, error) {
	if !s.Enabled() {
		return "", apperr.Validation("API key missing", "configure suggest.api_key (or OKRBOARD_SUGGEST_API_KEY) to use suggestions")
	}
	start := time.Now()
	text, err := s.gen.Generate(ctx, prompt)
	s.metrics.RecordSuggestion(kind, err)
	if err != nil {
		s.logger.Warn("text generation failed", zap.String("provider", s.gen.Name()), zap.String("kind", kind), zap.Error(err))
		return "", err
	}
	s.logger.Debug("text generated", zap.String("provider", s.gen.Name()), zap.String("kind", kind),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// ObjectivePrompt asks for three distinct, measurable company objectives.
func ObjectivePrompt(year int) string {
	return fmt.Sprintf("Şirketimiz için önümüzdeki 12-18 ay içerisinde gerçekleştirebileceğimiz, 3 adet, "+
		"birbirinden farklı, ilham verici ve ölçülebilir ana hedef (Objective) önerisi oluştur. "+
		"Önerilerin %d yılı ve sonrasını kapsamasına dikkat et. "+
		"Cevabını sadece maddeler halinde, her madde bir hedef cümlesi olacak şekilde ver.", year)
}

// KRPrompt asks for three SMART key results for objective.
func KRPrompt(objective string, year int) string {
	return fmt.Sprintf("Aşağıdaki ana hedefe (Objective) ulaşmak için, 3 adet, birbirinden farklı, spesifik, "+
		"ölçülebilir, ulaşılabilir, ilgili ve zamana bağlı (SMART) anahtar sonuç (Key Result) önerisi oluştur. "+
		"Önerilerin %d yılı ve sonrasını kapsamasına dikkat et. Ana Hedef: %q. "+
		"Cevabını sadece maddeler halinde, her madde bir KR cümlesi olacak şekilde ver.", year, objective)
}

// AskPrompt prefixes question with a short progress report of ds.
func AskPrompt(question string, ds okr.Dataset, now time.Time) string {
	sum := okr.Summarize(ds, now)
	var b strings.Builder
	fmt.Fprintf(&b, "OKR durumu (%s): genel ilerleme %%%.0f, %d şirket hedefi, %d departman hedefi, %d/%d KR tamamlandı.\n",
		sum.CurrentQuarter, sum.OverallProgress, sum.CompanyObjectives, sum.DepartmentObjectives, sum.CompletedKRs, sum.TotalKRs)
	for _, obj := range ds.Objectives {
		fmt.Fprintf(&b, "- Şirket hedefi %q: %%%.0f\n", obj.Title, obj.Progress)
	}
	for _, dept := range ds.Departments {
		fmt.Fprintf(&b, "- Departman %q: %%%.0f (%d hedef)\n", dept.Name, dept.Progress, len(dept.Objectives))
	}
	b.WriteString("\nSoru: ")
	b.WriteString(question)
	return b.String()
}

var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// SplitSuggestions turns a bulleted or numbered answer into at most
// MaxSuggestions lines with their markers and markdown emphasis removed.
func SplitSuggestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}
