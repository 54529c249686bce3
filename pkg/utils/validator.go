package utils

import (
	"fmt"
	"regexp"
)

// cedulaRegex covers the national formats: provincial (8-123-4567),
// panameño extranjero (PE), extranjero (E) and naturalizado (N).
var cedulaRegex = regexp.MustCompile(`^(PE|E|N|\d{1,2})-\d{1,4}-\d{1,6}$`)

// ValidateCedula validates a Panamanian cédula number
func ValidateCedula(cedula string) error {
	if !cedulaRegex.MatchString(cedula) {
		return fmt.Errorf("invalid cédula format: %s", cedula)
	}
	return nil
}

// partidaRegex matches the dotted budget-code notation used by the
// institutional chart of accounts, e.g. 001.01.01.001.
var partidaRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){2,5}$`)

// ValidatePartidaCode validates a budget partida code
func ValidatePartidaCode(code string) error {
	if !partidaRegex.MatchString(code) {
		return fmt.Errorf("invalid partida code format: %s", code)
	}
	return nil
}

// controlCharRegex matches ASCII control characters, DEL included.
var controlCharRegex = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// SanitizeString removes control characters from free-text input
func SanitizeString(s string) string {
	return controlCharRegex.ReplaceAllString(s, "")
}
