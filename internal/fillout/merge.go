package fillout

import (
	"regexp"
	"strings"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/validation"
)

// Поля таблицы заявок, которые заполняет импорт.
const (
	FieldFirstName    = "First Name"
	FieldLastName     = "Last Name"
	FieldAddressLine1 = "Address (Line 1)"
	FieldCity         = "City"
	FieldState        = "State / Province"
	FieldZip          = "ZIP / Postal Code"
	FieldHeardAbout   = "How did you hear about this?"
	FieldDoingWell    = "What are we doing well?"
	FieldImprove      = "How can we improve?"
	FieldScreenshot   = "Screenshot"
	FieldGitHub       = "GitHub Username"
	FieldFulfilled    = "Fulfilled"
)

const projectSeparator = "\n\n--- Project ---\n\n"

var githubUser = regexp.MustCompile(`github\.com/([^/\s]+)`)

// Group описывает все заявки одного участника.
type Group struct {
	Key         string
	Submissions []Submission
}

// GroupSubmissions группирует заявки по адресу почты в нижнем регистре,
// а при его отсутствии по Slack ID. Порядок групп и заявок внутри них сохраняется.
func GroupSubmissions(subs []Submission) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, s := range subs {
		key := validation.NormalizeEmail(s.Get(ColEmail))
		if key == "" {
			key = validation.ExtractSlackID(s.Get(ColSlack))
		}
		if key == "" {
			continue
		}

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Submissions = append(groups[i].Submissions, s)
	}

	return groups
}

// Merge объединяет заявки участника в поля одной записи. Личные данные берутся
// из последней заявки, данные проектов собираются из всех, включая вторые проекты.
func Merge(subs []Submission) airtable.Fields {
	if len(subs) == 0 {
		return airtable.Fields{}
	}
	latest := subs[len(subs)-1]

	fields := airtable.Fields{
		airtable.FieldEmail:   latest.Get(ColEmail),
		airtable.FieldSlackID: validation.ExtractSlackID(latest.Get(ColSlack)),
	}

	first, last := SplitName(latest.Get(ColSignature))
	setIfPresent(fields, FieldFirstName, first)
	setIfPresent(fields, FieldLastName, last)

	setIfPresent(fields, FieldAddressLine1, latest.Get(ColAddress))
	setIfPresent(fields, FieldCity, latest.Get(ColCity))
	setIfPresent(fields, FieldState, latest.Get(ColState))
	setIfPresent(fields, FieldZip, latest.Get(ColZip))
	setIfPresent(fields, airtable.FieldCountry, latest.Get(ColCountry))

	heard := latest.Get(ColFoundConverge)
	if heard == "" {
		heard = latest.Get(ColHeardAbout)
	}
	fields[FieldHeardAbout] = heard
	fields[FieldDoingWell] = latest.Get(ColDoingWell)
	fields[FieldImprove] = latest.Get(ColCouldDoBetter)

	var (
		hackatime    []string
		descriptions []string
		deployments  []string
		videos       []string
		githubs      []string
	)
	addProject := func(s Submission, hackatimeCol, descCol, deployCol, videoCol, repoCol string) {
		if v := s.Get(hackatimeCol); v != "" {
			hackatime = append(hackatime, v)
		}
		if v := s.Get(descCol); v != "" {
			descriptions = append(descriptions, v)
		}
		if v := s.Get(deployCol); v != "" {
			deployments = append(deployments, v)
		}
		if v := s.Get(videoCol); v != "" {
			videos = append(videos, v)
		}
		if v := GitHubUsername(s.Get(repoCol)); v != "" {
			githubs = append(githubs, v)
		}
	}

	for _, s := range subs {
		addProject(s, ColHackatime, ColDescription, ColDeployment, ColVideo, ColRepo)
		if hasSecondProject(s) {
			addProject(s, ColHackatime2, ColDescription2, ColDeployment2, ColVideo2, ColRepo2)
		}
	}

	if len(hackatime) > 0 {
		fields[airtable.FieldProjectNames] = strings.Join(dedup(hackatime), ", ")
	}
	if len(descriptions) > 0 {
		fields[airtable.FieldDescription] = strings.Join(descriptions, projectSeparator)
	}
	if len(deployments) > 0 {
		fields[airtable.FieldPlayableURL] = deployments[0]
	}
	if len(videos) > 0 {
		fields[FieldScreenshot] = []map[string]string{{"url": videos[0]}}
	}
	if len(githubs) > 0 {
		fields[FieldGitHub] = githubs[0]
	}

	return fields
}

// SplitName делит подпись на имя и фамилию по первому пробелу.
func SplitName(signature string) (string, string) {
	parts := strings.Fields(signature)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// GitHubUsername извлекает владельца репозитория из ссылки на GitHub.
func GitHubUsername(repoURL string) string {
	m := githubUser.FindStringSubmatch(repoURL)
	if m == nil {
		return ""
	}
	return m[1]
}

func hasSecondProject(s Submission) bool {
	v := strings.ToLower(s.Get(ColSecondProject))
	return v == "true" || v == "yes"
}

func dedup(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func setIfPresent(fields airtable.Fields, name, value string) {
	if value != "" {
		fields[name] = value
	}
}
