package jfr

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
)

// 테스트용 JFR 청크 인코더

const (
	tLong int64 = iota + 100
	tInt
	tFloat
	tString
	tBoolean
	tThread
	tVirtualSpace
	tExecutionSample
	tWallClockSample
	tCPULoad
	tGCHeapSummary
	tJVMInformation
	tUnknownEvent
)

type testField struct {
	name   string
	typeID int64
	cp     bool
}

type testClass struct {
	id     int64
	name   string
	fields []testField
}

func testClasses() []testClass {
	return []testClass{
		{id: tLong, name: "long"},
		{id: tInt, name: "int"},
		{id: tFloat, name: "float"},
		{id: tString, name: "java.lang.String"},
		{id: tBoolean, name: "boolean"},
		{id: tThread, name: "java.lang.Thread", fields: []testField{{name: "javaName", typeID: tString}}},
		{id: tVirtualSpace, name: "jdk.types.VirtualSpace", fields: []testField{
			{name: "start", typeID: tLong},
			{name: "committedEnd", typeID: tLong},
			{name: "committedSize", typeID: tLong},
			{name: "reservedEnd", typeID: tLong},
			{name: "reservedSize", typeID: tLong},
		}},
		{id: tExecutionSample, name: EventExecutionSample, fields: []testField{
			{name: "startTime", typeID: tLong},
			{name: "sampledThread", typeID: tThread, cp: true},
		}},
		{id: tWallClockSample, name: EventWallClockSample, fields: []testField{
			{name: "startTime", typeID: tLong},
			{name: "samples", typeID: tInt},
		}},
		{id: tCPULoad, name: EventCPULoad, fields: []testField{
			{name: "startTime", typeID: tLong},
			{name: "jvmUser", typeID: tFloat},
			{name: "jvmSystem", typeID: tFloat},
			{name: "machineTotal", typeID: tFloat},
		}},
		{id: tGCHeapSummary, name: EventGCHeapSummary, fields: []testField{
			{name: "startTime", typeID: tLong},
			{name: "gcId", typeID: tInt},
			{name: "heapSpace", typeID: tVirtualSpace},
			{name: "heapUsed", typeID: tLong},
		}},
		{id: tJVMInformation, name: EventJVMInformation, fields: []testField{
			{name: "startTime", typeID: tLong},
			{name: "jvmName", typeID: tString},
			{name: "jvmVersion", typeID: tString},
			{name: "jvmArguments", typeID: tString},
		}},
		{id: tUnknownEvent, name: "jdk.ThreadPark", fields: []testField{
			{name: "startTime", typeID: tLong},
			{name: "duration", typeID: tLong},
		}},
	}
}

type encoder struct {
	buf        bytes.Buffer
	compressed bool
}

func (e *encoder) varint(v uint64) {
	for i := 0; i < 8; i++ {
		if v < 0x80 {
			e.buf.WriteByte(byte(v))
			return
		}
		e.buf.WriteByte(byte(v&0x7f) | 0x80)
		v >>= 7
	}
	e.buf.WriteByte(byte(v))
}

func (e *encoder) int(v int32) {
	if e.compressed {
		e.varint(uint64(uint32(v)))
		return
	}
	_ = binary.Write(&e.buf, binary.BigEndian, v)
}

func (e *encoder) long(v int64) {
	if e.compressed {
		e.varint(uint64(v))
		return
	}
	_ = binary.Write(&e.buf, binary.BigEndian, v)
}

func (e *encoder) float(v float32) {
	_ = binary.Write(&e.buf, binary.BigEndian, math.Float32bits(v))
}

func (e *encoder) str(s string) {
	e.buf.WriteByte(stringUTF8)
	e.int(int32(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) poolRef(idx int64) {
	e.buf.WriteByte(stringPoolRef)
	e.long(idx)
}

// record - size 접두어를 붙인 이벤트 레코드
func record(compressed bool, body []byte) []byte {
	sizeLen := 4
	if compressed {
		sizeLen = 1
		for varintLen(uint64(len(body)+sizeLen)) != sizeLen {
			sizeLen++
		}
	}
	out := &encoder{compressed: compressed}
	out.int(int32(len(body) + sizeLen))
	out.buf.Write(body)
	return out.buf.Bytes()
}

func varintLen(v uint64) int {
	n := 1
	for v >= 0x80 && n < 9 {
		v >>= 7
		n++
	}
	return n
}

type chunkBuilder struct {
	compressed bool
	classes    []testClass
	events     [][]byte
	strings    map[int64]string
}

func newChunk(compressed bool) *chunkBuilder {
	return &chunkBuilder{compressed: compressed, classes: testClasses()}
}

func (c *chunkBuilder) enc() *encoder {
	return &encoder{compressed: c.compressed}
}

func (c *chunkBuilder) event(typeID int64, write func(e *encoder)) *chunkBuilder {
	e := c.enc()
	e.long(typeID)
	write(e)
	c.events = append(c.events, record(c.compressed, e.buf.Bytes()))
	return c
}

func (c *chunkBuilder) executionSample() *chunkBuilder {
	return c.event(tExecutionSample, func(e *encoder) {
		e.long(1)
		e.long(42)
	})
}

func (c *chunkBuilder) wallClockSample() *chunkBuilder {
	return c.event(tWallClockSample, func(e *encoder) {
		e.long(1)
		e.int(3)
	})
}

func (c *chunkBuilder) cpuLoad(user, system, machine float32) *chunkBuilder {
	return c.event(tCPULoad, func(e *encoder) {
		e.long(1)
		e.float(user)
		e.float(system)
		e.float(machine)
	})
}

func (c *chunkBuilder) gcHeap(used, committed int64) *chunkBuilder {
	return c.event(tGCHeapSummary, func(e *encoder) {
		e.long(1)
		e.int(7)
		e.long(0)
		e.long(committed)
		e.long(committed)
		e.long(committed * 2)
		e.long(committed * 2)
		e.long(used)
	})
}

func (c *chunkBuilder) jvmInfo(version, args string) *chunkBuilder {
	return c.event(tJVMInformation, func(e *encoder) {
		e.long(1)
		e.str("OpenJDK 64-Bit Server VM")
		e.str(version)
		e.str(args)
	})
}

// jvmInfoPooled - jvmVersion을 상수풀 참조로 기록
func (c *chunkBuilder) jvmInfoPooled(versionRef int64, args string) *chunkBuilder {
	return c.event(tJVMInformation, func(e *encoder) {
		e.long(1)
		e.buf.WriteByte(stringNull)
		e.poolRef(versionRef)
		e.str(args)
	})
}

func (c *chunkBuilder) unknown() *chunkBuilder {
	return c.event(tUnknownEvent, func(e *encoder) {
		e.long(1)
		e.long(1000)
	})
}

// withStrings - java.lang.String 상수풀 이벤트 추가
func (c *chunkBuilder) withStrings(pool map[int64]string) *chunkBuilder {
	c.strings = pool
	return c
}

func (c *chunkBuilder) metadata() []byte {
	var strs []string
	index := map[string]int32{}
	intern := func(s string) int32 {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = int32(len(strs))
		strs = append(strs, s)
		return index[s]
	}

	tree := c.enc()
	writeElement := func(e *encoder, name string, attrs [][2]string, children int) {
		e.int(intern(name))
		e.int(int32(len(attrs)))
		for _, a := range attrs {
			e.int(intern(a[0]))
			e.int(intern(a[1]))
		}
		e.int(int32(children))
	}

	classes := c.classes
	writeElement(tree, "root", nil, 2)
	writeElement(tree, "metadata", nil, len(classes))
	for _, cls := range classes {
		writeElement(tree, "class", [][2]string{
			{"name", cls.name},
			{"id", strconv.FormatInt(cls.id, 10)},
		}, len(cls.fields))
		for _, f := range cls.fields {
			attrs := [][2]string{{"name", f.name}, {"class", strconv.FormatInt(f.typeID, 10)}}
			if f.cp {
				attrs = append(attrs, [2]string{"constantPool", "true"})
			}
			writeElement(tree, "field", attrs, 0)
		}
	}
	writeElement(tree, "region", nil, 0)

	body := c.enc()
	body.long(metadataEventType)
	body.long(0)
	body.long(0)
	body.long(1)
	body.int(int32(len(strs)))
	for _, s := range strs {
		body.str(s)
	}
	body.buf.Write(tree.buf.Bytes())
	return record(c.compressed, body.buf.Bytes())
}

func (c *chunkBuilder) constantPool() []byte {
	body := c.enc()
	body.long(constantPoolType)
	body.long(0)
	body.long(0)
	body.long(0) // delta
	body.buf.WriteByte(1)
	body.int(1)
	body.long(tString)
	body.int(int32(len(c.strings)))
	for k, v := range c.strings {
		body.long(k)
		body.str(v)
	}
	return record(c.compressed, body.buf.Bytes())
}

// bytes - 헤더 | 메타데이터 | (상수풀) | 이벤트들
func (c *chunkBuilder) bytes() []byte {
	meta := c.metadata()
	var cp []byte
	if c.strings != nil {
		cp = c.constantPool()
	}

	var events bytes.Buffer
	for _, ev := range c.events {
		events.Write(ev)
	}

	size := int64(chunkHeaderSize + len(meta) + len(cp) + events.Len())
	var cpOffset int64
	if cp != nil {
		cpOffset = int64(chunkHeaderSize + len(meta))
	}
	var features uint32
	if c.compressed {
		features = featureCompressed
	}

	var out bytes.Buffer
	out.Write(chunkMagic[:])
	_ = binary.Write(&out, binary.BigEndian, uint16(2))
	_ = binary.Write(&out, binary.BigEndian, uint16(0))
	_ = binary.Write(&out, binary.BigEndian, size)
	_ = binary.Write(&out, binary.BigEndian, cpOffset)
	_ = binary.Write(&out, binary.BigEndian, int64(chunkHeaderSize))
	for i := 0; i < 4; i++ { // start nanos, duration, start ticks, ticks per second
		_ = binary.Write(&out, binary.BigEndian, int64(0))
	}
	_ = binary.Write(&out, binary.BigEndian, features)
	out.Write(meta)
	out.Write(cp)
	out.Write(events.Bytes())
	return out.Bytes()
}
