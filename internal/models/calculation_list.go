package models

// CalculationList is an ordered calculation collection
type CalculationList []Calculation

// RemoveCategory deletes every calculation in a category and returns how many were removed
func (l *CalculationList) RemoveCategory(name string) int {
	kept := make(CalculationList, 0, len(*l))
	for _, c := range *l {
		if c.Category.Name != name {
			kept = append(kept, c)
		}
	}
	removed := len(*l) - len(kept)
	*l = kept
	return removed
}

// CategoryNames returns the category name of every calculation, in order
func (l CalculationList) CategoryNames() []string {
	names := make([]string, 0, len(l))
	for _, c := range l {
		names = append(names, c.Category.Name)
	}
	return names
}

// Categories returns the category reference of every calculation, in order
func (l CalculationList) Categories() []CategoryRef {
	refs := make([]CategoryRef, 0, len(l))
	for _, c := range l {
		refs = append(refs, c.Category)
	}
	return refs
}
