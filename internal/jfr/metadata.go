package jfr

import (
	"fmt"
	"strconv"
)

// Field - 클래스 메타데이터의 필드 정의
type Field struct {
	Name         string
	TypeID       int64
	Array        bool
	ConstantPool bool
}

// Class - 메타데이터 이벤트에 선언된 타입 (이벤트 타입, 구조체, primitive 모두 포함)
type Class struct {
	ID     int64
	Name   string
	Fields []Field
}

// element - 메타데이터 트리의 노드 (root > metadata > class > field)
type element struct {
	name     string
	attrs    map[string]string
	children []*element
}

const maxElementDepth = 16

// parseMetadata - 메타데이터 이벤트를 읽어 타입 ID -> Class 맵을 만든다.
// d는 메타데이터 이벤트의 시작(size 필드)을 가리켜야 한다.
func parseMetadata(d *decoder) (map[int64]*Class, error) {
	if _, err := d.int(); err != nil { // size
		return nil, err
	}
	typeID, err := d.long()
	if err != nil {
		return nil, err
	}
	if typeID != metadataEventType {
		return nil, fmt.Errorf("jfr: expected metadata event, got type %d", typeID)
	}
	// startTime, duration, metadataId
	for i := 0; i < 3; i++ {
		if _, err := d.long(); err != nil {
			return nil, err
		}
	}

	count, err := d.length()
	if err != nil {
		return nil, err
	}
	strs := make([]string, count)
	for i := range strs {
		if strs[i], err = d.str(nil); err != nil {
			return nil, err
		}
	}

	root, err := readElement(d, strs, 0)
	if err != nil {
		return nil, err
	}

	classes := make(map[int64]*Class)
	for _, section := range root.children {
		if section.name != "metadata" {
			continue
		}
		for _, el := range section.children {
			if el.name != "class" {
				continue
			}
			cls, err := classFromElement(el)
			if err != nil {
				return nil, err
			}
			classes[cls.ID] = cls
		}
	}
	return classes, nil
}

func readElement(d *decoder, strs []string, depth int) (*element, error) {
	if depth > maxElementDepth {
		return nil, fmt.Errorf("jfr: metadata nested too deeply")
	}
	lookup := func() (string, error) {
		idx, err := d.int()
		if err != nil {
			return "", err
		}
		if idx < 0 || int(idx) >= len(strs) {
			return "", fmt.Errorf("jfr: metadata string index %d out of range", idx)
		}
		return strs[idx], nil
	}

	name, err := lookup()
	if err != nil {
		return nil, err
	}
	el := &element{name: name, attrs: map[string]string{}}

	attrCount, err := d.length()
	if err != nil {
		return nil, err
	}
	for i := 0; i < attrCount; i++ {
		k, err := lookup()
		if err != nil {
			return nil, err
		}
		v, err := lookup()
		if err != nil {
			return nil, err
		}
		el.attrs[k] = v
	}

	childCount, err := d.length()
	if err != nil {
		return nil, err
	}
	for i := 0; i < childCount; i++ {
		child, err := readElement(d, strs, depth+1)
		if err != nil {
			return nil, err
		}
		el.children = append(el.children, child)
	}
	return el, nil
}

func classFromElement(el *element) (*Class, error) {
	id, err := strconv.ParseInt(el.attrs["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("jfr: class %q has invalid id: %w", el.attrs["name"], err)
	}
	cls := &Class{ID: id, Name: el.attrs["name"]}
	for _, child := range el.children {
		if child.name != "field" {
			continue
		}
		typeID, err := strconv.ParseInt(child.attrs["class"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("jfr: field %s.%s has invalid type: %w", cls.Name, child.attrs["name"], err)
		}
		cls.Fields = append(cls.Fields, Field{
			Name:         child.attrs["name"],
			TypeID:       typeID,
			Array:        child.attrs["dimension"] == "1" || child.attrs["array"] == "true",
			ConstantPool: child.attrs["constantPool"] == "true",
		})
	}
	return cls, nil
}
