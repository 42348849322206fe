package api

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RelayMap 继电器名称 -> 继电器序号
type RelayMap struct {
	Relays map[string]uint8 `yaml:"relays"`
}

// LoadRelayMap 从 YAML 文件加载名称映射，path 为空返回空映射
func LoadRelayMap(path string) (*RelayMap, error) {
	m := &RelayMap{Relays: make(map[string]uint8)}
	if path == "" {
		return m, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read relay map: %w", err)
	}
	if err := yaml.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("unmarshal relay map: %w", err)
	}
	if m.Relays == nil {
		m.Relays = make(map[string]uint8)
	}
	for name := range m.Relays {
		// 纯数字名称会与序号冲突
		if _, err := strconv.Atoi(name); err == nil {
			return nil, fmt.Errorf("relay map: name %q must not be numeric", name)
		}
	}
	return m, nil
}

// Resolve 解析路径参数：0..255 的序号或映射中的名称
func (m *RelayMap) Resolve(ref string) (uint8, bool) {
	if n, err := strconv.ParseUint(ref, 10, 8); err == nil {
		return uint8(n), true
	}
	if m == nil {
		return 0, false
	}
	idx, ok := m.Relays[ref]
	return idx, ok
}

// RelayEntry 映射条目
type RelayEntry struct {
	Name  string `json:"name"`
	Index uint8  `json:"index"`
}

// Entries 按序号、名称排序的条目列表
func (m *RelayMap) Entries() []RelayEntry {
	if m == nil {
		return []RelayEntry{}
	}
	out := make([]RelayEntry, 0, len(m.Relays))
	for name, idx := range m.Relays {
		out = append(out, RelayEntry{Name: name, Index: idx})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Name < out[j].Name
	})
	return out
}
