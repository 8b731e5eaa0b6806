// Package fillout переносит выгрузку формы Fillout в таблицу заявок.
package fillout

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Столбцы выгрузки Fillout.
const (
	ColEmail         = "What's your email?"
	ColSlack         = "What's your Slack display name/ID?"
	ColHeardAbout    = "How'd you hear about Converge?"
	ColFoundConverge = "Where did you find Converge?"
	ColRepo          = "Project repo link (1)"
	ColVideo         = "Video link of it working"
	ColDescription   = "How do you use it? And what's the idea behind it?"
	ColHackatime     = "Hackatime project names"
	ColDeployment    = "Link to deployment"
	ColSecondProject = "I made a second project"
	ColRepo2         = "Project repo link"
	ColDescription2  = "How do you use it? And what's the idea behind it? (1)"
	ColDeployment2   = "Link to deployment (1)"
	ColHackatime2    = "Hackatime project names (1)"
	ColVideo2        = "Video link of it working (1)"
	ColAddress       = "Address (Your address)"
	ColCity          = "City (Your address)"
	ColState         = "State/Province (Your address)"
	ColZip           = "Zip/Postal code (Your address)"
	ColCountry       = "Country (Your address)"
	ColSignature     = "To confirm, please e-sign below."
	ColDoingWell     = "What are we doing well?"
	ColCouldDoBetter = "What could we do better?"
	ColLastUpdated   = "Last updated"
	ColSubmissionID  = "Submission ID"
)

// Submission описывает одну строку выгрузки как значения по именам столбцов.
type Submission map[string]string

// Get возвращает значение столбца без пробелов по краям.
func (s Submission) Get(col string) string {
	return strings.TrimSpace(s[col])
}

// ParseCSV читает выгрузку с заголовком в первой строке. Пустые строки пропускаются.
func ParseCSV(r io.Reader) ([]Submission, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var subs []Submission
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		sub := make(Submission, len(header))
		blank := true
		for i, value := range row {
			if i >= len(header) {
				break
			}
			v := strings.TrimSpace(value)
			if v != "" {
				blank = false
			}
			sub[header[i]] = v
		}
		if !blank {
			subs = append(subs, sub)
		}
	}

	return subs, nil
}
