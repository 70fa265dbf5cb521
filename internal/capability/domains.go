package capability

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DomainsFile is the YAML document that extends the allow-list:
//
//	domains:
//	  - example-amp.com
type DomainsFile struct {
	Domains []string `yaml:"domains"`
}

// ParseDomains decodes a DomainsFile and rejects entries that are not bare domains.
func ParseDomains(data []byte) ([]string, error) {
	var f DomainsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse domains yaml: %w", err)
	}

	out := make([]string, 0, len(f.Domains))
	for i, d := range f.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || strings.ContainsAny(d, "@/ ") || !strings.Contains(d, ".") {
			return nil, fmt.Errorf("domains[%d]: invalid domain %q", i, f.Domains[i])
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadDomains reads and parses a DomainsFile from path.
func LoadDomains(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domains file: %w", err)
	}
	return ParseDomains(data)
}
