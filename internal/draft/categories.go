package draft

import "strings"

// ParseCategories разбирает ввод вида "Necklace, polki ,, necklace":
// split по запятой, trim, lower-case, пустые отбрасываются, дубликаты схлопываются
// с сохранением первого вхождения.
func ParseCategories(input string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(input, ",") {
		cat := strings.ToLower(strings.TrimSpace(part))
		if cat == "" || seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
	}
	return out
}

// DiffCategories возвращает toAdd = desired - existing и toRemove = existing - desired.
// Порядок: toAdd в порядке desired, toRemove в порядке existing.
func DiffCategories(existing, desired []string) (toAdd, toRemove []string) {
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c] = true
	}
	want := make(map[string]bool, len(desired))
	for _, c := range desired {
		want[c] = true
		if !have[c] {
			toAdd = append(toAdd, c)
		}
	}
	for _, c := range existing {
		if !want[c] {
			toRemove = append(toRemove, c)
		}
	}
	return toAdd, toRemove
}

// SpecializationPlan сводит ввод категорий агента к операциям add/remove.
// Категории, которые уже есть и остались в вводе, не трогаются (их уровень сохраняется).
func SpecializationPlan(agentID int64, existing []string, input string) []Op {
	toAdd, toRemove := DiffCategories(existing, ParseCategories(input))
	ops := make([]Op, 0, len(toAdd)+len(toRemove))
	for _, c := range toAdd {
		ops = append(ops, Op{Kind: OpAddSpecialization, AgentID: agentID, Category: c, Proficiency: BaselineProficiency})
	}
	for _, c := range toRemove {
		ops = append(ops, Op{Kind: OpRemoveSpecialization, AgentID: agentID, Category: c})
	}
	return ops
}
