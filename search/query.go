// Package search indexes relayed messages and answers room-scoped
// full-text queries.
package search

import (
	"strconv"
	"strings"
)

const defaultLimit = 10

// Query decouples the raw chat input from the index engine requirements.
type Query struct {
	Raw   string // the original query string from the client
	Terms string // the text actually searched
	Limit int    // maximum number of hits returned
}

// ParseQuery extracts command-line style arguments from a raw query.
// Example: /find invoice report --limit 5
func ParseQuery(input string) Query {
	query := Query{Raw: input, Limit: defaultLimit}

	parts := strings.Fields(input)
	var terms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			if strings.TrimPrefix(part, "--") == "limit" {
				if n, err := strconv.Atoi(parts[i+1]); err == nil && n > 0 {
					query.Limit = n
				}
			}
			i++ // skip the flag value
			continue
		}

		// Leading slash commands ("/find") are not search terms.
		if !strings.HasPrefix(part, "/") {
			terms = append(terms, part)
		}
	}

	query.Terms = strings.Join(terms, " ")
	return query
}
