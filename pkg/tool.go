package pkg

// Contains reports whether val is present in slice.
func Contains(slice []string, val string) bool {
	for i := range slice {
		if slice[i] == val {
			return true
		}
	}
	return false
}
