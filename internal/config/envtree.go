package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cpenv/internal/workflow/step"
	appErr "cpenv/pkg/errors"
)

// EnvTree is the layered JSON configuration tree holding per-language command
// definitions. Later layers override earlier ones; maps merge recursively.
type EnvTree struct {
	root map[string]interface{}
}

// NewEnvTree wraps an already-built tree (used by tests and in-memory setups).
func NewEnvTree(root map[string]interface{}) *EnvTree {
	if root == nil {
		root = map[string]interface{}{}
	}
	return &EnvTree{root: root}
}

// LoadEnvTree reads and merges the given JSON files in order. A missing file
// is skipped; a malformed file is an error naming the file.
func LoadEnvTree(paths ...string) (*EnvTree, error) {
	merged := map[string]interface{}{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, appErr.Wrapf(err, appErr.ConfigParseFailed, "read env config %s failed", path)
		}
		var layer map[string]interface{}
		if err := json.Unmarshal(data, &layer); err != nil {
			return nil, appErr.Wrapf(err, appErr.ConfigParseFailed, "parse env config %s failed", path)
		}
		merged = mergeTrees(merged, layer)
	}
	return &EnvTree{root: merged}, nil
}

func mergeTrees(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if overMap, ok := v.(map[string]interface{}); ok {
			if baseMap, ok := out[k].(map[string]interface{}); ok {
				out[k] = mergeTrees(baseMap, overMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Resolve walks the tree along the ordered key path. An unresolved segment is
// an error naming exactly that segment.
func (t *EnvTree) Resolve(path ...string) (interface{}, error) {
	var current interface{} = t.root
	for i, key := range path {
		node, ok := current.(map[string]interface{})
		if !ok {
			parent := "root"
			if i > 0 {
				parent = path[i-1]
			}
			return nil, appErr.Newf(appErr.ConfigPathUnknown,
				"config path %q: segment %q is not a tree node", strings.Join(path, "."), parent)
		}
		current, ok = node[key]
		if !ok {
			return nil, appErr.Newf(appErr.ConfigPathUnknown,
				"config path %q: segment %q not found", strings.Join(path, "."), key)
		}
	}
	return current, nil
}

// Steps returns the ordered step descriptors for (language, commandType).
func (t *EnvTree) Steps(language, commandType string) ([]step.Step, error) {
	raw, err := t.Resolve(language, "commands", commandType, "steps")
	if err != nil {
		return nil, err
	}
	// Round-trip through JSON to map the untyped tree onto typed steps.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ConfigParseFailed, "encode steps for %s/%s failed", language, commandType)
	}
	var steps []step.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, appErr.Wrapf(err, appErr.ConfigParseFailed, "decode steps for %s/%s failed", language, commandType)
	}
	for i, s := range steps {
		if s.Type == "" {
			return nil, appErr.Newf(appErr.InvalidFormat, "step %d for %s/%s has no type", i, language, commandType)
		}
	}
	return steps, nil
}

// Languages lists the configured language keys.
func (t *EnvTree) Languages() []string {
	keys := make([]string, 0, len(t.root))
	for k := range t.root {
		keys = append(keys, k)
	}
	return keys
}

// HasLanguage reports whether a language is configured.
func (t *EnvTree) HasLanguage(language string) bool {
	_, ok := t.root[language]
	return ok
}

// String renders the tree for debug output.
func (t *EnvTree) String() string {
	data, err := json.Marshal(t.root)
	if err != nil {
		return fmt.Sprintf("envtree<%d languages>", len(t.root))
	}
	return string(data)
}
