package service

import "strings"

// NormalizeEmail is the stored and compared form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
