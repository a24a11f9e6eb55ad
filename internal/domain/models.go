package domain

// Greeting - приветствие IVR для одного языка.
// ID == nil и IsOverride == false, когда бэкенд синтезировал запись из значения по умолчанию.
type Greeting struct {
	ID         *int64     `json:"id"`
	Language   string     `json:"language"`
	Message    string     `json:"message"`
	UpdatedAt  *Timestamp `json:"updated_at"`
	IsOverride bool       `json:"is_override"`
}

// IVRPrompt - текст одного слота IVR (menu, reprompt, ...).
type IVRPrompt struct {
	ID         *int64     `json:"id"`
	Key        string     `json:"key"`
	Message    string     `json:"message"`
	UpdatedAt  *Timestamp `json:"updated_at"`
	IsOverride bool       `json:"is_override"`
}

// Specialization - категория, в которой специализируется агент.
type Specialization struct {
	Category    string `json:"category"`
	Proficiency int    `json:"proficiency"`
}

// Agent - живой специалист, на которого переводятся звонки.
type Agent struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	PhoneNumber     string           `json:"phone_number"`
	Region          string           `json:"region"`
	IsActive        bool             `json:"is_active"`
	IsDefault       bool             `json:"is_default"`
	Specializations []Specialization `json:"specializations"`
}

// Categories возвращает категории агента в порядке добавления.
func (a Agent) Categories() []string {
	out := make([]string, 0, len(a.Specializations))
	for _, s := range a.Specializations {
		out = append(out, s.Category)
	}
	return out
}

// Correction - правило исправления слова, которое STT часто слышит неверно.
type Correction struct {
	ID          int64  `json:"id"`
	WrongWord   string `json:"wrong_word"`
	CorrectWord string `json:"correct_word"`
}

// CacheStatus - состояние кеша конфигурации на стороне бэкенда.
type CacheStatus struct {
	GreetingsCount   int    `json:"greetings_count"`
	AgentsCount      int    `json:"agents_count"`
	CorrectionsCount int    `json:"corrections_count"`
	LastRefresh      string `json:"last_refresh"`
}

// Регионы, которые понимает маршрутизация звонков.
const (
	RegionUS     = "US"
	RegionIndia  = "IN"
	RegionGlobal = "GLOBAL"
)

// KnownRegions - значения для выпадающего списка в форме агента.
var KnownRegions = []string{RegionUS, RegionIndia, RegionGlobal}
