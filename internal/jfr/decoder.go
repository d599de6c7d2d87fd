package jfr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf16"
)

// ErrTruncated는 레코드 중간에서 데이터가 끝났을 때 반환된다.
var ErrTruncated = errors.New("jfr: unexpected end of data")

// decoder - 경계가 정해진 바이트 구간 위의 커서
// 이벤트 하나(또는 메타데이터/상수풀 이벤트 하나)마다 새로 만든다.
type decoder struct {
	buf        []byte
	pos        int
	compressed bool
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.pos
}

func (d *decoder) byte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrTruncated
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) fixed(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, ErrTruncated
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// varint - JFR compressed integer (7비트 그룹, little-endian, 9번째 바이트는 8비트 전부 사용)
func (d *decoder) varint() (uint64, error) {
	var v uint64
	for i := 0; i < 9; i++ {
		b, err := d.byte()
		if err != nil {
			return 0, err
		}
		if i == 8 {
			return v | uint64(b)<<56, nil
		}
		v |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return v, nil
}

func (d *decoder) short() (int16, error) {
	if d.compressed {
		v, err := d.varint()
		return int16(uint16(v)), err
	}
	b, err := d.fixed(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (d *decoder) int() (int32, error) {
	if d.compressed {
		v, err := d.varint()
		return int32(uint32(v)), err
	}
	b, err := d.fixed(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (d *decoder) long() (int64, error) {
	if d.compressed {
		v, err := d.varint()
		return int64(v), err
	}
	b, err := d.fixed(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// float/double은 압축 여부와 관계없이 big-endian 고정 길이
func (d *decoder) float() (float64, error) {
	b, err := d.fixed(4)
	if err != nil {
		return 0, err
	}
	return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
}

func (d *decoder) double() (float64, error) {
	b, err := d.fixed(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// length - 배열/문자열 길이. 남은 바이트보다 클 수 없다.
func (d *decoder) length() (int, error) {
	n, err := d.int()
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > d.remaining() {
		return 0, fmt.Errorf("jfr: invalid length %d at offset %d", n, d.pos)
	}
	return int(n), nil
}

// String encodings
const (
	stringNull      = 0
	stringEmpty     = 1
	stringPoolRef   = 2
	stringUTF8      = 3
	stringCharArray = 4
	stringLatin1    = 5
)

// str - 문자열 디코딩. 상수풀 참조(2)는 pool에서 찾고, 없으면 빈 문자열.
func (d *decoder) str(pool map[int64]string) (string, error) {
	enc, err := d.byte()
	if err != nil {
		return "", err
	}
	switch enc {
	case stringNull, stringEmpty:
		return "", nil
	case stringPoolRef:
		idx, err := d.long()
		if err != nil {
			return "", err
		}
		return pool[idx], nil
	case stringUTF8:
		n, err := d.length()
		if err != nil {
			return "", err
		}
		b, err := d.fixed(n)
		return string(b), err
	case stringCharArray:
		n, err := d.length()
		if err != nil {
			return "", err
		}
		chars := make([]uint16, 0, n)
		for i := 0; i < n; i++ {
			c, err := d.short()
			if err != nil {
				return "", err
			}
			chars = append(chars, uint16(c))
		}
		return string(utf16.Decode(chars)), nil
	case stringLatin1:
		n, err := d.length()
		if err != nil {
			return "", err
		}
		b, err := d.fixed(n)
		if err != nil {
			return "", err
		}
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return string(runes), nil
	default:
		return "", fmt.Errorf("jfr: unknown string encoding %d", enc)
	}
}
