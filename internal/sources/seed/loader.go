package seed

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Loader reads a seed file from disk.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses the seed file. ${VAR} references are replaced with
// the environment value so passwords can stay out of the file.
func (l *Loader) Load() (Document, error) {
	var doc Document

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return doc, fmt.Errorf("failed to read seed file: %w", err)
	}

	data = expandEnv(data, os.Getenv)

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	return doc, nil
}

func expandEnv(data []byte, getenv func(string) string) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(getenv(string(name)))
	})
}
