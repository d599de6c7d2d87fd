package jfr

import "strings"

// Event - 디코딩된 JFR 이벤트 하나
// Fields 값은 int64, float64, bool, string, ConstantRef, []any, map[string]any 중 하나.
type Event struct {
	Type   string
	Fields map[string]any
}

// lookup - "heapSpace.committedSize" 같은 점 경로로 중첩 필드를 찾는다.
func (e *Event) lookup(path string) (any, bool) {
	var cur any = e.Fields
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Float - 숫자 필드를 float64로. 없거나 숫자가 아니면 0.
func (e *Event) Float(path string) float64 {
	v, _ := e.lookup(path)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

// Int - 정수 필드를 int64로. 없거나 정수가 아니면 0.
func (e *Event) Int(path string) int64 {
	v, _ := e.lookup(path)
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

// String - 문자열 필드. 없으면 빈 문자열.
func (e *Event) String(path string) string {
	v, _ := e.lookup(path)
	s, _ := v.(string)
	return s
}

// Has - 필드가 디코딩되었는지 여부
func (e *Event) Has(path string) bool {
	_, ok := e.lookup(path)
	return ok
}
