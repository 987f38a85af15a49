package store

import (
	"encoding/json"
	"fmt"
)

// Documents are wrapped in a versioned envelope so shape changes migrate
// instead of breaking old databases.
const currentVersion = 1

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// migrations[v] rewrites a version-v payload into version v+1.
var migrations = map[int]func(json.RawMessage) (json.RawMessage, error){
	// Version 0 is a bare document written before envelopes existed; the
	// payload shape itself did not change.
	0: func(data json.RawMessage) (json.RawMessage, error) {
		return data, nil
	},
}

func wrap(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: currentVersion, Data: raw})
}

// unwrap returns the current-version payload of a stored document, running
// the migration chain when the document predates the current version. Bare
// documents with no envelope are treated as version 0.
func unwrap(doc []byte) (json.RawMessage, error) {
	var env envelope
	version := 0
	data := json.RawMessage(doc)
	if err := json.Unmarshal(doc, &env); err == nil && env.Version > 0 && len(env.Data) > 0 {
		version = env.Version
		data = env.Data
	}

	if version > currentVersion {
		return nil, fmt.Errorf("document version %d is newer than supported version %d", version, currentVersion)
	}
	for version < currentVersion {
		migrate, ok := migrations[version]
		if !ok {
			return nil, fmt.Errorf("no migration from document version %d", version)
		}
		migrated, err := migrate(data)
		if err != nil {
			return nil, fmt.Errorf("migrate document from version %d: %w", version, err)
		}
		data = migrated
		version++
	}
	return data, nil
}
