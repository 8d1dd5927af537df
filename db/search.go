package db

import (
	"strings"

	"golang.org/x/text/cases"
)

// Search filters pessoas whose first name, last name or cpf contain query.
// Names are compared case-folded; cpf is compared as stored. An empty query
// returns pessoas unchanged. Matches keep their original order.
func Search(query string, pessoas []Pessoa) []Pessoa {
	term := foldTerm(query)
	if term == "" {
		return pessoas
	}

	fold := cases.Fold()

	result := []Pessoa{}
	for _, p := range pessoas {
		if strings.Contains(fold.String(p.FirstName), term) ||
			strings.Contains(fold.String(p.LastName), term) ||
			strings.Contains(p.Cpf, term) {
			result = append(result, p)
		}
	}

	return result
}

func foldTerm(query string) string {
	term := strings.TrimSpace(query)
	if term == "" {
		return ""
	}
	return cases.Fold().String(term)
}
