package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/screen-powersave/internal/logic"
)

// Profiles is the profile → delay mapping in document order. Decoding keeps the
// order of first appearance; a repeated key replaces the earlier value.
type Profiles []logic.ProfileDelay

func (p *Profiles) set(key string, seconds float64) {
	for i := range *p {
		if (*p)[i].Pattern == key {
			(*p)[i].Seconds = seconds
			return
		}
	}
	*p = append(*p, logic.ProfileDelay{Pattern: key, Seconds: seconds})
}

// UnmarshalJSON decodes a JSON object without losing key order.
func (p *Profiles) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("profiles: expected object, got %v", tok)
	}

	out := Profiles{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("profiles: expected key, got %v", tok)
		}
		var seconds float64
		if err := dec.Decode(&seconds); err != nil {
			return fmt.Errorf("profiles: value of %q: %w", key, err)
		}
		out.set(key, seconds)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	*p = out
	return nil
}

// MarshalJSON encodes the profiles as an object in order.
func (p Profiles) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Pattern)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(e.Seconds, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping without losing key order.
func (p *Profiles) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*p = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("profiles: line %d: expected mapping", node.Line)
	}
	out := Profiles{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		var seconds float64
		if err := v.Decode(&seconds); err != nil {
			return fmt.Errorf("profiles: value of %q: %w", k.Value, err)
		}
		out.set(k.Value, seconds)
	}
	*p = out
	return nil
}

// MarshalYAML encodes the profiles as a mapping in order.
func (p Profiles) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Pattern},
			&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(e.Seconds, 'f', -1, 64)},
		)
	}
	return node, nil
}
