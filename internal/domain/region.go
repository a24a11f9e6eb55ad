package domain

import "sort"

// RegionGroup - агенты одного региона для отображения.
type RegionGroup struct {
	Region string
	Agents []Agent
}

// GroupByRegion разбивает агентов по полю Region. Группы отсортированы по имени региона,
// внутри группы порядок агентов сохраняется.
func GroupByRegion(agents []Agent) []RegionGroup {
	index := make(map[string]int)
	var groups []RegionGroup
	for _, a := range agents {
		i, ok := index[a.Region]
		if !ok {
			i = len(groups)
			index[a.Region] = i
			groups = append(groups, RegionGroup{Region: a.Region})
		}
		groups[i].Agents = append(groups[i].Agents, a)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Region < groups[j].Region })
	return groups
}
