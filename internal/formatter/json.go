package formatter

import (
	"encoding/json"

	"github.com/harunnryd/thinx/internal/store"
)

type JSONFormatter struct{}

func (JSONFormatter) FormatEntries(entries []store.Entry) (string, error) {
	if entries == nil {
		entries = []store.Entry{}
	}
	return marshalJSON(entries)
}

func (JSONFormatter) FormatIdentities(metas []store.IdentityMeta) (string, error) {
	if metas == nil {
		metas = []store.IdentityMeta{}
	}
	return marshalJSON(metas)
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
