package storage

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion tags every persisted blob. Bump it when a record changes
// shape in a way older builds cannot read.
const SchemaVersion = 1

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Encode serializes v inside a versioned envelope.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize record: %w", err)
	}
	out, err := json.Marshal(envelope{Version: SchemaVersion, Data: data})
	if err != nil {
		return "", fmt.Errorf("failed to serialize envelope: %w", err)
	}
	return string(out), nil
}

// Decode reads a blob written by Encode into v. Blobs written before
// envelopes existed are decoded as bare payloads.
func Decode(raw string, v any) error {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil && env.Version > 0 && env.Data != nil {
		if env.Version > SchemaVersion {
			return fmt.Errorf("record schema version (%d) is newer than supported version (%d) - please upgrade the application", env.Version, SchemaVersion)
		}
		if err := json.Unmarshal(env.Data, v); err != nil {
			return fmt.Errorf("failed to parse record: %w", err)
		}
		return nil
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse record: %w", err)
	}
	return nil
}

// Fetch loads key into v. It reports false, leaving v untouched, when the
// key is absent.
func Fetch(p Provider, key string, v any) (bool, error) {
	raw, ok, err := p.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := Decode(raw, v); err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return true, nil
}

// Put encodes v and stores it under key.
func Put(p Provider, key string, v any) error {
	op, err := PutOp(key, v)
	if err != nil {
		return err
	}
	return p.Write(op)
}

// PutOp builds the Op that stores v under key.
func PutOp(key string, v any) (Op, error) {
	raw, err := Encode(v)
	if err != nil {
		return Op{}, fmt.Errorf("%s: %w", key, err)
	}
	return Op{Key: key, Value: raw}, nil
}

// DeleteOp builds the Op that removes key.
func DeleteOp(key string) Op {
	return Op{Key: key, Delete: true}
}
