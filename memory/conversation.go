package memory

import (
	"encoding/json"
	"os"
)

// SaveTranscript writes msgs to path as indented JSON.
func SaveTranscript(path string, msgs []Message) error {
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
