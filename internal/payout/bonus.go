package payout

// BonusTokens возвращает бонус за использование нескольких чат-платформ:
// по токену за платформу, если их не меньше BonusMinPlatforms.
// Бонус не выводит пользователя за MaxTokens и никогда не бывает отрицательным.
func (p Policy) BonusTokens(platforms int, baseTokens int64) int64 {
	if platforms < p.BonusMinPlatforms || platforms <= 0 {
		return 0
	}

	bonus := int64(platforms)
	if p.MaxTokens > 0 {
		bonus = min(bonus, max(0, p.MaxTokens-baseTokens))
	}
	return bonus
}
