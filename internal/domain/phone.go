package domain

import "strings"

// localNumberDigits - длина локальной части номера. Все, что левее, считается кодом страны.
// Это фиксированное правило, а не разбор телефонных номеров.
const localNumberDigits = 10

// SplitPhone делит сохраненный номер на код страны и локальный номер:
// последние 10 символов - локальный номер, остаток - код страны.
func SplitPhone(phone string) (countryCode, local string) {
	phone = strings.TrimSpace(phone)
	if len(phone) <= localNumberDigits {
		return "", phone
	}
	cut := len(phone) - localNumberDigits
	return phone[:cut], phone[cut:]
}

// JoinPhone склеивает код страны и локальный номер в одну строку для бэкенда.
func JoinPhone(countryCode, local string) string {
	return strings.TrimSpace(countryCode) + strings.TrimSpace(local)
}
