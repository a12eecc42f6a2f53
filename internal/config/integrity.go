package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ciguardian/ci-guardian/internal/util"
)

const integrityKey = "_integrity"

// IntegrityError is returned when the configuration's content no longer
// matches its _integrity hash.
type IntegrityError struct {
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("INTEGRITY COMPROMISED: configuration was modified outside ci-guardian "+
		"(recorded %s, computed %s); review the change and run 'ci-guardian config rehash'",
		e.Expected, e.Actual)
}

// HashContent returns "sha256:" followed by the hex SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// ComputeHash returns the integrity hash of a YAML document: the document
// minus its _integrity key, re-encoded by yaml.v3 (keys sorted), hashed.
// Formatting and comments therefore do not affect the result.
func ComputeHash(data []byte) (string, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("invalid YAML: %w", err)
	}
	delete(doc, integrityKey)
	canon, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return HashContent(canon), nil
}

// VerifyIntegrity compares data's computed hash with expected.
func VerifyIntegrity(data []byte, expected string) error {
	actual, err := ComputeHash(data)
	if err != nil {
		return err
	}
	if actual != expected {
		return &IntegrityError{Expected: expected, Actual: actual}
	}
	return nil
}

// Seal returns data with a fresh _integrity block appended at the end of
// the top-level mapping. Key order and comments elsewhere are preserved,
// as is an existing allow_programmatic setting.
func Seal(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("configuration must be a YAML mapping")
	}
	root := doc.Content[0]

	allow := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != integrityKey {
			continue
		}
		var prev Integrity
		if err := root.Content[i+1].Decode(&prev); err == nil {
			allow = prev.AllowProgrammatic
		}
		root.Content = append(root.Content[:i], root.Content[i+2:]...)
		break
	}

	var generic map[string]interface{}
	if err := root.Decode(&generic); err != nil {
		return nil, err
	}
	canon, err := yaml.Marshal(generic)
	if err != nil {
		return nil, err
	}

	var block yaml.Node
	if err := block.Encode(Integrity{Hash: HashContent(canon), AllowProgrammatic: allow}); err != nil {
		return nil, err
	}
	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: integrityKey}
	root.Content = append(root.Content, key, &block)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RegenerateHash rewrites the file at path with a fresh _integrity block.
func RegenerateHash(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sealed, err := Seal(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return util.AtomicWriteFile(path, sealed, 0644)
}

// WriteDefault writes the default configuration, sealed, to path. It
// refuses to replace an existing file unless overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	sealed, err := Seal(defaultYAML)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, sealed, 0644)
}
