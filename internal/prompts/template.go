package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"slices"
)

// variablePattern matches template references such as {{.Transcript}} or
// {{ .Contact.Name }}.
var variablePattern = regexp.MustCompile(`\{\{-?\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*-?\}\}`)

// ExtractVariables lists the distinct variables a template references, sorted.
func ExtractVariables(text string) []string {
	var vars []string
	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(vars, match[1]) {
			vars = append(vars, match[1])
		}
	}
	slices.Sort(vars)
	return vars
}

// HashText returns the hex SHA256 of text.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
