package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
)

// ManifestName is the file name of a project manifest.
const ManifestName = "package.json"

var dependencySections = []string{"dependencies", "devDependencies", "peerDependencies"}

// Manifest is a package.json document whose top-level keys keep their order.
type Manifest struct {
	obj *object
	// unparsable is set when the file on disk exists but could not be parsed.
	unparsable bool
}

// object is a JSON object with ordered keys and undecoded values.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func newObject() *object {
	return &object{values: make(map[string]json.RawMessage)}
}

func parseObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("manifest is not a JSON object")
	}
	obj := newObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		obj.set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after manifest object")
	}
	return obj, nil
}

func (o *object) set(key string, raw json.RawMessage) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
}

func (o *object) compact() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := encodeJSON(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		if err := json.Compact(&buf, o.values[k]); err != nil {
			return nil, fmt.Errorf("value of %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeJSON encodes v without HTML escaping.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseManifest parses package.json content.
func ParseManifest(data []byte) (*Manifest, error) {
	obj, err := parseObject(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	return &Manifest{obj: obj}, nil
}

// LoadManifest reads dir/package.json. A missing, unreadable or invalid file
// yields an empty manifest; an invalid one is marked Unparsable.
func LoadManifest(path string) *Manifest {
	data, err := os.ReadFile(path)
	if err != nil {
		return EmptyManifest()
	}
	m, err := ParseManifest(data)
	if err != nil {
		slog.Warn("Ignoring unparsable manifest", logfields.File(path), logfields.Error(err))
		m = EmptyManifest()
		m.unparsable = true
	}
	return m
}

// Unparsable reports whether the manifest was loaded from a file that could
// not be parsed. Saving it would replace the user's file.
func (m *Manifest) Unparsable() bool { return m.unparsable }

// EmptyManifest returns a manifest with no keys.
func EmptyManifest() *Manifest {
	return &Manifest{obj: newObject()}
}

// Keys returns the top-level keys in document order.
func (m *Manifest) Keys() []string {
	return append([]string(nil), m.obj.keys...)
}

// HasDependency reports whether name is declared in dependencies,
// devDependencies or peerDependencies.
func (m *Manifest) HasDependency(name string) bool {
	for _, section := range dependencySections {
		raw, ok := m.obj.values[section]
		if !ok {
			continue
		}
		var deps map[string]json.RawMessage
		if json.Unmarshal(raw, &deps) != nil {
			continue
		}
		if _, ok := deps[name]; ok {
			return true
		}
	}
	return false
}

// String returns a top-level string value.
func (m *Manifest) String(key string) (string, bool) {
	raw, ok := m.obj.values[key]
	if !ok {
		return "", false
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// SetString sets a top-level string value and reports whether the manifest changed.
func (m *Manifest) SetString(key, value string) (bool, error) {
	if cur, ok := m.String(key); ok && cur == value {
		return false, nil
	}
	raw, err := encodeJSON(value)
	if err != nil {
		return false, err
	}
	m.obj.set(key, raw)
	return true, nil
}

// Script returns the named entry of the scripts object.
func (m *Manifest) Script(name string) (string, bool) {
	scripts, err := m.scripts()
	if err != nil {
		return "", false
	}
	raw, ok := scripts.values[name]
	if !ok {
		return "", false
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// SetScript sets scripts[name] and reports whether the manifest changed. A
// missing or malformed scripts value is replaced by a new object.
func (m *Manifest) SetScript(name, command string) (bool, error) {
	if cur, ok := m.Script(name); ok && cur == command {
		return false, nil
	}
	scripts, err := m.scripts()
	if err != nil {
		scripts = newObject()
	}
	raw, err := encodeJSON(command)
	if err != nil {
		return false, err
	}
	scripts.set(name, raw)
	compact, err := scripts.compact()
	if err != nil {
		return false, err
	}
	m.obj.set("scripts", compact)
	return true, nil
}

func (m *Manifest) scripts() (*object, error) {
	raw, ok := m.obj.values["scripts"]
	if !ok {
		return newObject(), nil
	}
	return parseObject(raw)
}

// Marshal renders the manifest with two-space indentation and a trailing newline.
func (m *Manifest) Marshal() ([]byte, error) {
	compact, err := m.obj.compact()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("render %s: %w", ManifestName, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
