package common

import (
	"regexp"
	"sync"
)

var foldedPatterns sync.Map // pattern -> *regexp.Regexp

// CompileFolded compiles pattern as a case-insensitive regular expression.
// Successful compilations are memoized for the life of the process.
func CompileFolded(pattern string) (*regexp.Regexp, error) {
	if re, ok := foldedPatterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	foldedPatterns.Store(pattern, re)
	return re, nil
}
