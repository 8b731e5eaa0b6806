package payout

import (
	"strings"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/hackatime"
)

// OverrideLabel помечает время, взятое из ручной корректировки, а не из Hackatime.
const OverrideLabel = "Override Hours"

// Submission описывает одну одобренную заявку участника.
type Submission struct {
	RecordID      string
	SlackID       string
	Email         string
	ProjectNames  []string
	OverrideHours float64
	Text          string
}

// SubmissionFromRecord разбирает запись Airtable. Записи без Slack ID не подходят.
func SubmissionFromRecord(r airtable.Record) (Submission, bool) {
	slackID := r.SlackID()
	if slackID == "" {
		return Submission{}, false
	}

	var text []string
	if d := strings.TrimSpace(r.String(airtable.FieldDescription)); d != "" {
		text = append(text, "Description: "+d)
	}
	if u := strings.TrimSpace(r.String(airtable.FieldPlayableURL)); u != "" {
		text = append(text, "Playable URL: "+u)
	}

	return Submission{
		RecordID:      r.ID,
		SlackID:       slackID,
		Email:         r.Email(),
		ProjectNames:  ParseProjectNames(r.String(airtable.FieldProjectNames)),
		OverrideHours: r.Number(airtable.FieldOverrideHours),
		Text:          strings.Join(text, "\n"),
	}, true
}

// ParseProjectNames разбивает строку по запятым, обрезает пробелы, отбрасывает
// пустые имена и повторы без учёта регистра. Порядок первых вхождений сохраняется.
func ParseProjectNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var names []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

// MatchedSeconds суммирует время проектов Hackatime, имена которых совпадают
// с заявленными без учёта регистра и пробелов по краям.
// Возвращает сумму и имена совпавших проектов.
func MatchedSeconds(projects []hackatime.Project, declared []string) (float64, []string) {
	if len(projects) == 0 || len(declared) == 0 {
		return 0, nil
	}

	want := make(map[string]struct{}, len(declared))
	for _, name := range declared {
		want[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	var (
		total   float64
		matched []string
	)
	for _, p := range projects {
		if _, ok := want[strings.ToLower(strings.TrimSpace(p.Name))]; !ok {
			continue
		}
		if p.TotalSeconds > 0 {
			total += p.TotalSeconds
		}
		matched = append(matched, p.Name)
	}
	return total, matched
}
