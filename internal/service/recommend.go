package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
)

// Recommendation scoring weights. These are empirically tuned constants kept
// for behavioral parity with the production heuristics; treat them as
// tunables, not derived values.
const (
	themeTokenWeight = 0.9

	budgetInRangeBonus  = 2.2
	budgetNearMissBonus = 0.9
	budgetMissPenalty   = -0.8
	budgetNearMissLow   = 0.8
	budgetNearMissHigh  = 1.2

	statusOpenBonus     = 1.2
	statusUpcomingBonus = 0.5
	statusClosedPenalty = -1.0

	deadlineFutureBonus = 0.7
	deadlinePastPenalty = -0.6

	trlHintBonus = 0.1

	// candidateScoreThreshold excludes weak matches outright.
	candidateScoreThreshold = 0.2

	// noticeTokenMinLen is coarser than chunk matching to reduce noise
	// against short notice titles.
	noticeTokenMinLen = 4
)

// NoticeCandidate is one recommended notice with its match explanation.
type NoticeCandidate struct {
	Notice       *domain.Notice
	MatchedTerms []string
	Reasons      []string
	Score        float64
}

var (
	budgetCurrencyPattern = regexp.MustCompile(`(?i)r\$\s*([\d.]+(?:,\d+)?)`)
	budgetScaledPattern   = regexp.MustCompile(`(?i)([\d.]+(?:,\d+)?)\s*(mil(?:h(?:ao|ões|oes|ão))?|mi\b|k\b)`)
	trlPattern            = regexp.MustCompile(`(?i)\btrl\s*([1-9])\b`)
)

// parseBudgetHint extracts a monetary value from free text. It understands
// "R$ 200.000,00", "300 mil", "2k" and "1,5 milhão"/"2 mi"; dots are treated
// as thousands separators and the comma as the decimal point.
func parseBudgetHint(query string) *float64 {
	if m := budgetScaledPattern.FindStringSubmatch(query); m != nil {
		if value, ok := parseLocaleNumber(m[1]); ok {
			unit := strings.ToLower(m[2])
			switch {
			case strings.HasPrefix(unit, "milh") || unit == "mi":
				value *= 1_000_000
			case unit == "mil" || unit == "k":
				value *= 1_000
			}
			return &value
		}
	}
	if m := budgetCurrencyPattern.FindStringSubmatch(query); m != nil {
		if value, ok := parseLocaleNumber(m[1]); ok {
			return &value
		}
	}
	return nil
}

func parseLocaleNumber(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// parseTRLHint extracts a "TRL N" maturity hint, N in 1..9.
func parseTRLHint(query string) *int {
	m := trlPattern.FindStringSubmatch(query)
	if m == nil {
		return nil
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &value
}

// RecommendNotices ranks all notices against a free-text query when the chat
// request carries no notice context. Notices scoring at or below the
// threshold are excluded; the survivors are cut to the level's candidate
// count. An empty result is the "no context" signal.
func RecommendNotices(notices []*domain.Notice, query string, level domain.SearchLevel, now time.Time) []NoticeCandidate {
	budgetHint := parseBudgetHint(query)
	trlHint := parseTRLHint(query)
	tokens := queryTokens(query, noticeTokenMinLen)
	today := now.Truncate(24 * time.Hour)

	candidates := make([]NoticeCandidate, 0, len(notices))
	for _, notice := range notices {
		if notice == nil {
			continue
		}
		candidate := scoreNotice(notice, tokens, budgetHint, trlHint, today)
		if candidate.Score <= candidateScoreThreshold {
			continue
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if max := level.MaxCandidates(); len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

func scoreNotice(notice *domain.Notice, tokens []string, budgetHint *float64, trlHint *int, today time.Time) NoticeCandidate {
	candidate := NoticeCandidate{Notice: notice}

	haystack := normalizeText(strings.Join([]string{
		notice.Title,
		notice.Summary,
		notice.Description,
		notice.AgencyName,
		strings.Join(notice.Tags, " "),
	}, " "))

	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			candidate.MatchedTerms = append(candidate.MatchedTerms, token)
		}
	}
	candidate.Score += themeTokenWeight * float64(len(candidate.MatchedTerms))
	if len(candidate.MatchedTerms) > 0 {
		candidate.Reasons = append(candidate.Reasons, "temas: "+strings.Join(candidate.MatchedTerms, ", "))
	}

	// The budget component only fires when both a hint and both bounds
	// exist; a hint clearly outside the range is an explicit penalty, not
	// just a missing bonus.
	if budgetHint != nil && notice.BudgetMin != nil && notice.BudgetMax != nil {
		switch {
		case *budgetHint >= *notice.BudgetMin && *budgetHint <= *notice.BudgetMax:
			candidate.Score += budgetInRangeBonus
			candidate.Reasons = append(candidate.Reasons, "orcamento dentro da faixa do edital")
		case *budgetHint >= *notice.BudgetMin*budgetNearMissLow && *budgetHint <= *notice.BudgetMax*budgetNearMissHigh:
			candidate.Score += budgetNearMissBonus
			candidate.Reasons = append(candidate.Reasons, "orcamento proximo da faixa do edital")
		default:
			candidate.Score += budgetMissPenalty
			candidate.Reasons = append(candidate.Reasons, "orcamento fora da faixa do edital")
		}
	}

	switch notice.Status {
	case domain.NoticeStatusOpen:
		candidate.Score += statusOpenBonus
		candidate.Reasons = append(candidate.Reasons, "edital aberto")
	case domain.NoticeStatusUpcoming:
		candidate.Score += statusUpcomingBonus
		candidate.Reasons = append(candidate.Reasons, "edital em breve")
	case domain.NoticeStatusClosed:
		candidate.Score += statusClosedPenalty
	}

	if !notice.DeadlineDate.IsZero() {
		if !notice.DeadlineDate.Truncate(24 * time.Hour).Before(today) {
			candidate.Score += deadlineFutureBonus
		} else {
			candidate.Score += deadlinePastPenalty
		}
	}

	// Reserved weighting: the TRL hint only nudges the score today.
	if trlHint != nil {
		candidate.Score += trlHintBonus
	}

	return candidate
}

// FormatBudgetRange renders a notice budget in pt-BR currency style, or a
// "not informed" marker when a bound is absent.
func FormatBudgetRange(min, max *float64) string {
	if min == nil || max == nil {
		return "nao informado"
	}
	return fmt.Sprintf("%s a %s", formatBRL(*min), formatBRL(*max))
}

// formatBRL writes a value as "R$ 1.234.567,89". Hand-rolled because the
// repo's locale needs are this one format; a full CLDR currency layer would
// be the only consumer of such a dependency.
func formatBRL(value float64) string {
	neg := value < 0
	if neg {
		value = -value
	}
	whole := fmt.Sprintf("%.2f", value)
	intPart, fracPart, _ := strings.Cut(whole, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}
