// Package model defines the data structures shared by the analysis pipeline.
package model

// Path represents a file system path.
type Path string

// Source is a protected script loaded for analysis.
type Source struct {
	Origin  Path
	Hash    string
	Content []byte
}

// Text returns the script as a string.
func (s Source) Text() string {
	return string(s.Content)
}
