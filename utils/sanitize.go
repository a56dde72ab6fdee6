package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML content to prevent XSS attacks. The policy output is
// returned as is; entities it produces stay encoded.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
