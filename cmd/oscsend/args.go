package main

import (
	"strconv"
	"strings"

	"github.com/danmuck/osclink/internal/protocol/codec"
)

// parseArg turns one command-line word into a message value. Quoted words
// stay text; JSON objects and lists keep their structure.
func parseArg(s string) (any, error) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], nil
	}
	switch s {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	case "nil", "null", "None":
		return nil, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return codec.DecodeJSON(s)
	}
	return s, nil
}

func parseArgs(words []string) ([]any, error) {
	out := make([]any, 0, len(words))
	for _, w := range words {
		v, err := parseArg(w)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
