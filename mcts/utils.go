package mcts

// byVisits sorts action statistics with the recommended action first: most
// visits, then highest value, then lowest action index.
type byVisits []ActionStats

func (l byVisits) Len() int      { return len(l) }
func (l byVisits) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l byVisits) Less(i, j int) bool {
	if l[i].Visits != l[j].Visits {
		return l[i].Visits > l[j].Visits
	}
	if l[i].Value != l[j].Value {
		return l[i].Value > l[j].Value
	}
	return l[i].Action < l[j].Action
}
