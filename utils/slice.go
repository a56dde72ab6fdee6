package utils

// UniqueStrings removes duplicates while keeping first-seen order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]struct{}, len(slice))
	list := make([]string, 0, len(slice))
	for _, entry := range slice {
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		list = append(list, entry)
	}
	return list
}
