package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"chat-relay/errors"
)

//go:embed wordlists/*.txt
var wordlistFS embed.FS

// Wordlists carries the loaded dictionary plus metadata for logging.
type Wordlists struct {
	Words     []string
	Languages []string
}

// DefaultWordlists loads the dictionaries embedded in the binary.
func DefaultWordlists() (*Wordlists, error) {
	return LoadWordlists(wordlistFS, "wordlists")
}

// LoadWordlists reads every .txt file in dir as one language dictionary
// (e.g. "fr.txt" -> "fr") and merges the entries into a unique word list.
func LoadWordlists(fsys embed.FS, dir string) (*Wordlists, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fsys.ReadFile(dir + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles \n and \r\n line endings alike.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}

	return &Wordlists{Words: words, Languages: languages}, nil
}
