// Package envelope parses and mutates the JSON document carried as a
// broker record's value.
//
// The inner path that enrichment mutates, object.<objectType>.buffer, is
// data-dependent: objectType varies per record, so the document is kept as
// a generic tree (map[string]any) rather than a fixed struct.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// heartbeatMarker matches a textually null buffer field in the raw
// record bytes, tolerant of serializer whitespace. Checking the raw
// value is cheaper than decoding, and it correctly classifies heartbeats
// even if the rest of the document were to change shape.
var heartbeatMarker = regexp.MustCompile(`"buffer"\s*:\s*null`)

// Envelope is the parsed form of a data record's value.
type Envelope map[string]any

// IsHeartbeat reports whether raw (a record's undecoded value) carries the
// null-buffer marker. It runs before any JSON parsing is attempted.
func IsHeartbeat(raw []byte) bool {
	return heartbeatMarker.Match(raw)
}

// Parse decodes raw as a generic JSON document.
func Parse(raw []byte) (Envelope, error) {
	var e Envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&e); err != nil {
		return nil, fmt.Errorf("envelope: parse: %w", err)
	}
	return e, nil
}

// Bytes serializes the envelope back to JSON.
func (e Envelope) Bytes() ([]byte, error) {
	b, err := json.Marshal(map[string]any(e))
	if err != nil {
		return nil, fmt.Errorf("envelope: serialize: %w", err)
	}
	return b, nil
}

// ObjectType returns the top-level objectType field.
func (e Envelope) ObjectType() (string, error) {
	v, ok := e["objectType"]
	if !ok {
		return "", fmt.Errorf("envelope: missing objectType")
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("envelope: objectType is not a string")
	}
	return s, nil
}

// ObjectID returns object.id.
func (e Envelope) ObjectID() (string, error) {
	obj, err := e.objectMap()
	if err != nil {
		return "", err
	}
	id, ok := obj["id"].(string)
	if !ok {
		return "", fmt.Errorf("envelope: missing object.id")
	}
	return id, nil
}

// SensorID returns sensor.id, the publish key for every output record.
func (e Envelope) SensorID() (string, error) {
	v, ok := e["sensor"]
	if !ok {
		return "", fmt.Errorf("envelope: missing sensor")
	}
	sensor, ok := v.(map[string]any)
	if !ok {
		return "", fmt.Errorf("envelope: sensor is not an object")
	}
	id, ok := sensor["id"].(string)
	if !ok {
		return "", fmt.Errorf("envelope: missing sensor.id")
	}
	return id, nil
}

// Timestamp returns the @timestamp field.
func (e Envelope) Timestamp() (string, error) {
	v, ok := e["@timestamp"]
	if !ok {
		return "", fmt.Errorf("envelope: missing @timestamp")
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("envelope: @timestamp is not a string")
	}
	return s, nil
}

// SetBuffer returns a deep copy of e with
// object.<lowercased objectType>.buffer replaced by image, and every other
// field unchanged. The receiver is never mutated.
func (e Envelope) SetBuffer(objectType, image string) (Envelope, error) {
	cp, err := e.clone()
	if err != nil {
		return nil, err
	}
	obj, err := cp.objectMap()
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(objectType)
	inner, ok := obj[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("envelope: missing object.%s", key)
	}
	inner["buffer"] = image
	return cp, nil
}

func (e Envelope) objectMap() (map[string]any, error) {
	v, ok := e["object"]
	if !ok {
		return nil, fmt.Errorf("envelope: missing object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("envelope: object is not an object")
	}
	return obj, nil
}

// clone deep-copies the envelope via a JSON round trip. The document is
// small and this path runs once per enrichment, not per record, so the
// simplicity of round-tripping outweighs a hand-rolled deep copy.
func (e Envelope) clone() (Envelope, error) {
	b, err := json.Marshal(map[string]any(e))
	if err != nil {
		return nil, fmt.Errorf("envelope: clone marshal: %w", err)
	}
	var cp Envelope
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, fmt.Errorf("envelope: clone unmarshal: %w", err)
	}
	return cp, nil
}
