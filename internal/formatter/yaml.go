package formatter

import (
	"strings"

	"github.com/harunnryd/thinx/internal/store"

	"gopkg.in/yaml.v3"
)

type YAMLFormatter struct{}

type yamlEntry struct {
	Role      string `yaml:"role"`
	Content   string `yaml:"content"`
	Timestamp string `yaml:"timestamp"`
	Source    string `yaml:"source,omitempty"`
}

type yamlIdentity struct {
	Identity  string `yaml:"identity"`
	Entries   int    `yaml:"entries"`
	CreatedAt string `yaml:"created_at"`
	UpdatedAt string `yaml:"updated_at"`
}

func (YAMLFormatter) FormatEntries(entries []store.Entry) (string, error) {
	out := make([]yamlEntry, len(entries))
	for i, e := range entries {
		out[i] = yamlEntry{Role: string(e.Role), Content: e.Content, Timestamp: e.Timestamp, Source: e.Source}
	}
	return marshalYAML(out)
}

func (YAMLFormatter) FormatIdentities(metas []store.IdentityMeta) (string, error) {
	out := make([]yamlIdentity, len(metas))
	for i, m := range metas {
		out[i] = yamlIdentity{
			Identity:  m.Identity,
			Entries:   m.Entries,
			CreatedAt: store.FormatTimestamp(m.CreatedAt),
			UpdatedAt: store.FormatTimestamp(m.UpdatedAt),
		}
	}
	return marshalYAML(out)
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
