package payout

import "github.com/mmeshcher/converge-shop/internal/model"

// Warning сообщает об уменьшении доступного баланса пользователя после пересчёта.
type Warning struct {
	SlackID    string `json:"slackId"`
	Email      string `json:"email"`
	OldBalance int64  `json:"oldBalance"`
	NewBalance int64  `json:"newBalance"`
	Difference int64  `json:"difference"`
}

// Reconcile сравнивает доступный баланс до и после пересчёта.
//
// Старый баланс равен сумме всех начислений минус траты. Новый считается как
// новые начисления плюс сохраняемые защищённые минус те же траты. Предупреждение
// выдаётся не более одного раза на пользователя, если новый баланс меньше старого,
// а старый был положительным. Порядок предупреждений повторяет порядок users.
func Reconcile(users []string, prior map[string]model.LedgerBalance, newTokens map[string]int64, emails map[string]string) []Warning {
	var warnings []Warning
	seen := make(map[string]struct{}, len(users))

	for _, id := range users {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		b := prior[id]
		oldAvailable := b.Available()
		newAvailable := newTokens[id] + b.Protected - b.Spent

		if newAvailable >= oldAvailable || oldAvailable <= 0 {
			continue
		}

		newBalance := max(0, newAvailable)
		warnings = append(warnings, Warning{
			SlackID:    id,
			Email:      emails[id],
			OldBalance: oldAvailable,
			NewBalance: newBalance,
			Difference: oldAvailable - newBalance,
		})
	}

	return warnings
}
