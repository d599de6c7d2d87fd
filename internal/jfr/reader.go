// JFR(Java Flight Recorder) 바이너리 청크 리더
//
// 파일 구조:
//   - 청크 헤더 (68 bytes): magic "FLR\0", 버전, 청크 크기, 상수풀/메타데이터 오프셋, features
//   - 이벤트 레코드: size | typeId | 필드들 (메타데이터에 선언된 순서)
//   - typeId 0 = 메타데이터 이벤트, 1 = 상수풀 이벤트
//
// 파일이 잘려 있어도 읽은 데까지의 이벤트는 그대로 반환한다.

package jfr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	chunkHeaderSize     = 68
	featureCompressed   = 1
	metadataEventType   = 0
	constantPoolType    = 1
	maxConstantPools    = 4096
	maxValueDepth       = 32
	stringClassName     = "java.lang.String"
	minSupportedVersion = 1
	maxSupportedVersion = 2
)

var chunkMagic = [4]byte{'F', 'L', 'R', 0}

// ConstantRef - 해석하지 않은 상수풀 참조 (스레드, 스택트레이스 등)
type ConstantRef struct {
	TypeID int64
	Index  int64
}

// Reader - JFR 이벤트를 하나씩 순차적으로 읽는 스트리밍 리더
type Reader struct {
	data []byte
	pos  int

	inChunk    bool
	chunkEnd   int
	compressed bool
	classes    map[int64]*Class
	strings    map[int64]string
}

// NewReader - raw JFR 바이트에 대한 Reader 생성
func NewReader(raw []byte) *Reader {
	return &Reader{data: raw}
}

// Next - 다음 이벤트를 반환한다. 정상 종료 시 io.EOF.
// 메타데이터/상수풀 이벤트와 메타데이터에 없는 타입은 건너뛴다.
func (r *Reader) Next() (*Event, error) {
	for {
		if !r.inChunk {
			if r.pos >= len(r.data) {
				return nil, io.EOF
			}
			if err := r.openChunk(); err != nil {
				return nil, err
			}
		}
		if r.pos >= r.chunkEnd {
			r.pos = r.chunkEnd
			r.inChunk = false
			continue
		}

		start := r.pos
		head := &decoder{buf: r.data[start:r.chunkEnd], compressed: r.compressed}
		size, err := head.int()
		if err != nil {
			return nil, err
		}
		if size <= 0 {
			return nil, fmt.Errorf("jfr: invalid event size %d at offset %d", size, start)
		}
		end := start + int(size)
		if end > r.chunkEnd {
			return nil, fmt.Errorf("%w: event at offset %d needs %d bytes", ErrTruncated, start, size)
		}
		r.pos = end

		d := &decoder{buf: r.data[start:end], pos: head.pos, compressed: r.compressed}
		typeID, err := d.long()
		if err != nil {
			return nil, err
		}
		if typeID == metadataEventType || typeID == constantPoolType {
			continue
		}
		cls := r.classes[typeID]
		if cls == nil {
			continue
		}

		// 필드 하나가 깨져도 이벤트 경계는 size로 알고 있으므로 다음 이벤트는 계속 읽을 수 있다.
		fields, _ := r.decodeStruct(d, cls, 0)
		return &Event{Type: cls.Name, Fields: fields}, nil
	}
}

// openChunk - r.pos 위치의 청크 헤더, 메타데이터, 상수풀을 읽는다.
func (r *Reader) openChunk() error {
	start := r.pos
	if len(r.data)-start < chunkHeaderSize {
		return fmt.Errorf("%w: incomplete chunk header at offset %d", ErrTruncated, start)
	}
	h := r.data[start : start+chunkHeaderSize]
	if [4]byte(h[0:4]) != chunkMagic {
		return fmt.Errorf("jfr: bad magic at offset %d", start)
	}
	major := binary.BigEndian.Uint16(h[4:6])
	if major < minSupportedVersion || major > maxSupportedVersion {
		return fmt.Errorf("jfr: unsupported version %d.%d", major, binary.BigEndian.Uint16(h[6:8]))
	}
	size := int64(binary.BigEndian.Uint64(h[8:16]))
	cpOffset := int64(binary.BigEndian.Uint64(h[16:24]))
	metaOffset := int64(binary.BigEndian.Uint64(h[24:32]))
	features := binary.BigEndian.Uint32(h[64:68])

	if size < chunkHeaderSize {
		return fmt.Errorf("jfr: invalid chunk size %d", size)
	}
	end := start + int(size)
	if end > len(r.data) || end < start {
		// 잘린 파일: 남은 데이터까지만 읽는다
		end = len(r.data)
	}

	r.compressed = features&featureCompressed != 0
	r.chunkEnd = end
	r.strings = map[int64]string{}

	if metaOffset <= 0 || start+int(metaOffset) >= end {
		return fmt.Errorf("%w: metadata at offset %d is outside the available data", ErrTruncated, metaOffset)
	}
	classes, err := parseMetadata(&decoder{buf: r.data[start+int(metaOffset) : end], compressed: r.compressed})
	if err != nil {
		return fmt.Errorf("jfr: reading metadata: %w", err)
	}
	r.classes = classes

	if cpOffset > 0 {
		// 상수풀은 문자열 해석에만 쓰이므로 실패해도 이벤트 읽기는 계속한다
		_ = r.readConstantPools(start, int(cpOffset))
	}

	r.pos = start + chunkHeaderSize
	r.inChunk = true
	return nil
}

// readConstantPools - delta 체인을 따라가며 java.lang.String 상수만 수집한다.
func (r *Reader) readConstantPools(chunkStart, offset int) error {
	for i := 0; i < maxConstantPools; i++ {
		at := chunkStart + offset
		if offset <= 0 || at >= r.chunkEnd {
			return ErrTruncated
		}
		d := &decoder{buf: r.data[at:r.chunkEnd], compressed: r.compressed}
		if _, err := d.int(); err != nil { // size
			return err
		}
		typeID, err := d.long()
		if err != nil {
			return err
		}
		if typeID != constantPoolType {
			return fmt.Errorf("jfr: expected constant pool event at offset %d", at)
		}
		if _, err := d.long(); err != nil { // startTime
			return err
		}
		if _, err := d.long(); err != nil { // duration
			return err
		}
		delta, err := d.long()
		if err != nil {
			return err
		}
		if _, err := d.byte(); err != nil { // flush
			return err
		}
		if err := r.readPools(d); err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}
		offset += int(delta)
	}
	return errors.New("jfr: too many constant pool events")
}

func (r *Reader) readPools(d *decoder) error {
	poolCount, err := d.length()
	if err != nil {
		return err
	}
	for p := 0; p < poolCount; p++ {
		typeID, err := d.long()
		if err != nil {
			return err
		}
		count, err := d.length()
		if err != nil {
			return err
		}
		cls := r.classes[typeID]
		if cls == nil {
			return fmt.Errorf("jfr: constant pool for unknown type %d", typeID)
		}
		for i := 0; i < count; i++ {
			key, err := d.long()
			if err != nil {
				return err
			}
			v, err := r.decodeValue(d, cls, 0)
			if err != nil {
				return err
			}
			if s, ok := v.(string); ok && cls.Name == stringClassName {
				r.strings[key] = s
			}
		}
	}
	return nil
}

// decodeValue - 타입에 따라 primitive 또는 중첩 구조체를 디코딩
func (r *Reader) decodeValue(d *decoder, cls *Class, depth int) (any, error) {
	switch cls.Name {
	case "boolean":
		b, err := d.byte()
		return b != 0, err
	case "byte":
		b, err := d.byte()
		return int64(int8(b)), err
	case "char", "short":
		v, err := d.short()
		return int64(v), err
	case "int":
		v, err := d.int()
		return int64(v), err
	case "long":
		return d.long()
	case "float":
		return d.float()
	case "double":
		return d.double()
	case stringClassName:
		return d.str(r.strings)
	}
	return r.decodeStruct(d, cls, depth)
}

// decodeStruct - 필드를 순서대로 읽는다. 에러가 나면 그때까지 읽은 필드를 함께 반환한다.
func (r *Reader) decodeStruct(d *decoder, cls *Class, depth int) (map[string]any, error) {
	fields := make(map[string]any, len(cls.Fields))
	if depth > maxValueDepth {
		return fields, fmt.Errorf("jfr: %s nested too deeply", cls.Name)
	}
	for _, f := range cls.Fields {
		v, err := r.decodeField(d, f, depth+1)
		if err != nil {
			return fields, fmt.Errorf("jfr: %s.%s: %w", cls.Name, f.Name, err)
		}
		fields[f.Name] = v
	}
	return fields, nil
}

func (r *Reader) decodeField(d *decoder, f Field, depth int) (any, error) {
	if !f.Array {
		return r.decodeSingle(d, f, depth)
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.decodeSingle(d, f, depth)
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (r *Reader) decodeSingle(d *decoder, f Field, depth int) (any, error) {
	cls := r.classes[f.TypeID]
	if cls == nil {
		return nil, fmt.Errorf("unknown type %d", f.TypeID)
	}
	if f.ConstantPool {
		idx, err := d.long()
		if err != nil {
			return nil, err
		}
		if cls.Name == stringClassName {
			return r.strings[idx], nil
		}
		return ConstantRef{TypeID: f.TypeID, Index: idx}, nil
	}
	return r.decodeValue(d, cls, depth)
}
