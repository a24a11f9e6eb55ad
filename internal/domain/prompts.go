package domain

import "sort"

// Известные слоты IVR. Развертывание может добавлять свои ключи, консоль показывает все,
// что вернул бэкенд.
const (
	PromptMenu               = "menu"
	PromptReprompt           = "reprompt"
	PromptInvalid            = "invalid"
	PromptNamePrompt         = "name_prompt"
	PromptAssistTypePrompt   = "assist_type_prompt"
	PromptProductIDPrompt    = "product_id_prompt"
	PromptCategoryPrompt     = "category_prompt"
	PromptPriceProductPrompt = "price_product_prompt"
	PromptConfirmation       = "confirmation"
	PromptConnecting         = "connecting"
	PromptNoAgent            = "no_agent"
)

// KnownPromptKeys - слоты в том порядке, в котором их проходит звонящий.
var KnownPromptKeys = []string{
	PromptMenu,
	PromptReprompt,
	PromptInvalid,
	PromptNamePrompt,
	PromptAssistTypePrompt,
	PromptProductIDPrompt,
	PromptCategoryPrompt,
	PromptPriceProductPrompt,
	PromptConfirmation,
	PromptConnecting,
	PromptNoAgent,
}

var promptLabels = map[string]string{
	PromptMenu:               "Main menu",
	PromptReprompt:           "Reprompt (no input)",
	PromptInvalid:            "Invalid input",
	PromptNamePrompt:         "Ask caller name",
	PromptAssistTypePrompt:   "Product or category?",
	PromptProductIDPrompt:    "Ask product ID",
	PromptCategoryPrompt:     "Ask category",
	PromptPriceProductPrompt: "Price request: product ID",
	PromptConfirmation:       "Confirmation before transfer",
	PromptConnecting:         "Connecting announcement",
	PromptNoAgent:            "No agent available",
}

// PromptLabel возвращает подпись слота для формы; для неизвестных ключей - сам ключ.
func PromptLabel(key string) string {
	if label, ok := promptLabels[key]; ok {
		return label
	}
	return key
}

// IsKnownPromptKey сообщает, входит ли ключ в стандартный набор слотов.
func IsKnownPromptKey(key string) bool {
	_, ok := promptLabels[key]
	return ok
}

// SortPrompts упорядочивает слоты по ходу звонка; ключи развертывания идут в конце по алфавиту.
func SortPrompts(prompts []IVRPrompt) {
	rank := make(map[string]int, len(KnownPromptKeys))
	for i, k := range KnownPromptKeys {
		rank[k] = i
	}
	sort.SliceStable(prompts, func(i, j int) bool {
		ri, iKnown := rank[prompts[i].Key]
		rj, jKnown := rank[prompts[j].Key]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		}
		return prompts[i].Key < prompts[j].Key
	})
}
