package airtable

import "strings"

// Имена полей таблицы заявок.
const (
	FieldSlackID         = "Slack ID"
	FieldEmail           = "Email"
	FieldEmailNormalised = "Email Normalised"
	FieldProjectNames    = "Hackatime Project Name"
	FieldOverrideHours   = "Optional - Override Hours Spent"
	FieldDescription     = "Description"
	FieldPlayableURL     = "Playable URL"
	FieldStatus          = "Status"
	FieldCountry         = "Country"
	FieldConvergeReview  = "Converge Review"
	FieldProjectName     = "Project Name"
	FieldBirthday        = "Birthday"
	FieldAutoAssigned    = "Auto-assigned an address?"

	FieldAddressLine1   = "Address Line1"
	FieldAddressLine2   = "Address Line2"
	FieldAddressCity    = "Address City"
	FieldAddressState   = "Address State"
	FieldAddressZipCode = "Address Zip Code"
	FieldAddressCountry = "Address Country"
)

// ApprovedFormula отбирает одобренные заявки.
const ApprovedFormula = `{Converge Review} = "Approved"`

// Fields содержит значения полей записи.
type Fields map[string]any

// Record описывает одну запись таблицы.
type Record struct {
	ID     string `json:"id,omitempty"`
	Fields Fields `json:"fields"`
}

// String возвращает строковое поле или пустую строку, если поле отсутствует или имеет другой тип.
func (r Record) String(name string) string {
	s, _ := r.Fields[name].(string)
	return s
}

// Number возвращает числовое поле или 0.
func (r Record) Number(name string) float64 {
	switch v := r.Fields[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// SlackID возвращает Slack ID автора заявки без пробелов по краям.
func (r Record) SlackID() string {
	return strings.TrimSpace(r.String(FieldSlackID))
}

// Email возвращает нормализованный адрес, а при его отсутствии исходный.
func (r Record) Email() string {
	if e := strings.TrimSpace(r.String(FieldEmailNormalised)); e != "" {
		return e
	}
	return strings.TrimSpace(r.String(FieldEmail))
}

// HasAddress сообщает, заполнен ли в записи хотя бы один значимый компонент адреса.
func (r Record) HasAddress() bool {
	for _, f := range []string{FieldAddressLine1, FieldAddressCity, FieldAddressState, FieldAddressZipCode, FieldAddressCountry} {
		if r.String(f) != "" {
			return true
		}
	}
	return false
}
