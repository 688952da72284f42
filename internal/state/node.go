// internal/state/node.go
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the variants of a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Member is one key/value pair of a mapping node.
type Member struct {
	Key   string
	Value *Node
}

// Node is one value of the embedded state tree. Unlike a plain
// map[string]any decode, mapping members keep the document order of the
// source JSON, which makes repeated extractions emit media references
// in identical order.
type Node struct {
	kind    Kind
	str     string
	num     json.Number
	boolean bool
	members []Member
	index   map[string]int
	items   []*Node
}

// Kind returns the node's variant.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// AsString returns the string value when the node is a string.
func (n *Node) AsString() (string, bool) {
	if n == nil || n.kind != KindString {
		return "", false
	}
	return n.str, true
}

// AsNumber returns the numeric value when the node is a number.
func (n *Node) AsNumber() (float64, bool) {
	if n == nil || n.kind != KindNumber {
		return 0, false
	}
	f, err := n.num.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// AsBool returns the boolean value when the node is a bool.
func (n *Node) AsBool() (bool, bool) {
	if n == nil || n.kind != KindBool {
		return false, false
	}
	return n.boolean, true
}

// Field returns the value for key when the node is a mapping, else nil.
func (n *Node) Field(key string) *Node {
	if n == nil || n.kind != KindMapping {
		return nil
	}
	pos, ok := n.index[key]
	if !ok {
		return nil
	}
	return n.members[pos].Value
}

// StringField returns the string value for key, or "" when the key is
// absent or not a string.
func (n *Node) StringField(key string) string {
	s, _ := n.Field(key).AsString()
	return s
}

// FirstString returns the first non-empty string among the given keys,
// consulted in order.
func (n *Node) FirstString(keys ...string) string {
	for _, key := range keys {
		if s := n.StringField(key); s != "" {
			return s
		}
	}
	return ""
}

// Members returns the mapping's key/value pairs in document order.
func (n *Node) Members() []Member {
	if n == nil || n.kind != KindMapping {
		return nil
	}
	return n.members
}

// Items returns the sequence's elements in order.
func (n *Node) Items() []*Node {
	if n == nil || n.kind != KindSequence {
		return nil
	}
	return n.items
}

// Len returns the member or item count for composite nodes, else 0.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindMapping:
		return len(n.members)
	case KindSequence:
		return len(n.items)
	default:
		return 0
	}
}

// UnmarshalJSON decodes JSON into the node, preserving mapping member
// order. Duplicate keys keep their first position with the last value,
// mirroring what an ordinary object decode would retain.
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := decodeValue(dec)
	if err != nil {
		return err
	}

	// Trailing garbage after the value is a malformed document.
	if _, err := dec.Token(); err == nil {
		return fmt.Errorf("unexpected data after JSON value")
	}

	*n = *node
	return nil
}

func decodeValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (*Node, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			node := &Node{kind: KindMapping, index: make(map[string]int)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				value, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if pos, dup := node.index[key]; dup {
					node.members[pos].Value = value
					continue
				}
				node.index[key] = len(node.members)
				node.members = append(node.members, Member{Key: key, Value: value})
			}
			// consume closing '}'
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil

		case '[':
			node := &Node{kind: KindSequence}
			for dec.More() {
				value, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				node.items = append(node.items, value)
			}
			// consume closing ']'
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil

		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}

	case string:
		return &Node{kind: KindString, str: t}, nil
	case json.Number:
		return &Node{kind: KindNumber, num: t}, nil
	case bool:
		return &Node{kind: KindBool, boolean: t}, nil
	case nil:
		return &Node{kind: KindNull}, nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

// FromAny converts a generic decoded value (a goja export, say) into a
// Node. Plain maps carry no order, so members are sorted by key; it is
// deterministic but not document order.
func FromAny(v any) *Node {
	switch t := v.(type) {
	case nil:
		return &Node{kind: KindNull}
	case bool:
		return &Node{kind: KindBool, boolean: t}
	case string:
		return &Node{kind: KindString, str: t}
	case json.Number:
		return &Node{kind: KindNumber, num: t}
	case float64:
		return &Node{kind: KindNumber, num: floatNumber(t)}
	case float32:
		return &Node{kind: KindNumber, num: floatNumber(float64(t))}
	case int:
		return &Node{kind: KindNumber, num: intNumber(int64(t))}
	case int32:
		return &Node{kind: KindNumber, num: intNumber(int64(t))}
	case int64:
		return &Node{kind: KindNumber, num: intNumber(t)}
	case uint32:
		return &Node{kind: KindNumber, num: intNumber(int64(t))}
	case uint64:
		return &Node{kind: KindNumber, num: floatNumber(float64(t))}
	case []any:
		node := &Node{kind: KindSequence, items: make([]*Node, 0, len(t))}
		for _, item := range t {
			node.items = append(node.items, FromAny(item))
		}
		return node
	case map[string]any:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		node := &Node{kind: KindMapping, index: make(map[string]int, len(t))}
		for _, key := range keys {
			node.index[key] = len(node.members)
			node.members = append(node.members, Member{Key: key, Value: FromAny(t[key])})
		}
		return node
	default:
		// Function values and host objects have no tree representation.
		return &Node{kind: KindNull}
	}
}

func floatNumber(f float64) json.Number {
	b, _ := json.Marshal(f)
	return json.Number(b)
}

func intNumber(i int64) json.Number {
	b, _ := json.Marshal(i)
	return json.Number(b)
}
