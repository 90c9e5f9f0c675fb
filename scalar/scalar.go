// Package scalar defines the fixed-width, totally-ordered key and value
// domain the store operates over, and the little-endian byte encoding used
// to feed that domain to a hash function or a memory-mapped disk run.
package scalar

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// Kind constrains a type to the numeric kinds: a disk run needs a fixed,
// computable byte width per key and per value, which a string can't offer.
type Kind interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Pair is the kvPair every tier of the store passes around: a memtable
// Record, a disk run entry and a k-way merge candidate are all the same
// shape.
type Pair[K Kind, V comparable] struct {
	Key   K
	Value V
}

// Width reports the fixed on-disk byte width of T.
func Width[T Kind]() int {
	var zero T
	switch reflect.ValueOf(zero).Kind() {
	case reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	default:
		return 8
	}
}

// Bytes returns the little-endian bit pattern of v, used as hash input for
// Bloom filter probes and auxiliary-table slotting, and as the packed
// on-disk representation for a disk run's fixed-width records.
func Bytes[T Kind](v T) []byte {
	rv := reflect.ValueOf(v)
	b := make([]byte, Width[T]())
	switch rv.Kind() {
	case reflect.Int, reflect.Int64:
		binary.LittleEndian.PutUint64(b, uint64(rv.Int()))
	case reflect.Int8:
		b[0] = byte(rv.Int())
	case reflect.Int16:
		binary.LittleEndian.PutUint16(b, uint16(rv.Int()))
	case reflect.Int32:
		binary.LittleEndian.PutUint32(b, uint32(rv.Int()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		binary.LittleEndian.PutUint64(b, rv.Uint())
	case reflect.Uint8:
		b[0] = byte(rv.Uint())
	case reflect.Uint16:
		binary.LittleEndian.PutUint16(b, uint16(rv.Uint()))
	case reflect.Uint32:
		binary.LittleEndian.PutUint32(b, uint32(rv.Uint()))
	case reflect.Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(rv.Float())))
	case reflect.Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(rv.Float()))
	default:
		panic(fmt.Sprintf("scalar: unsupported kind %s", rv.Kind()))
	}
	return b
}

// Decode is the inverse of Bytes.
func Decode[T Kind](b []byte) T {
	var zero T
	rv := reflect.New(reflect.TypeOf(zero)).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int64:
		rv.SetInt(int64(binary.LittleEndian.Uint64(b)))
	case reflect.Int8:
		rv.SetInt(int64(int8(b[0])))
	case reflect.Int16:
		rv.SetInt(int64(int16(binary.LittleEndian.Uint16(b))))
	case reflect.Int32:
		rv.SetInt(int64(int32(binary.LittleEndian.Uint32(b))))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		rv.SetUint(binary.LittleEndian.Uint64(b))
	case reflect.Uint8:
		rv.SetUint(uint64(b[0]))
	case reflect.Uint16:
		rv.SetUint(uint64(binary.LittleEndian.Uint16(b)))
	case reflect.Uint32:
		rv.SetUint(uint64(binary.LittleEndian.Uint32(b)))
	case reflect.Float32:
		rv.SetFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case reflect.Float64:
		rv.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	default:
		panic(fmt.Sprintf("scalar: unsupported kind %s", rv.Kind()))
	}
	return rv.Interface().(T)
}

// Min returns the smallest representable value of T.
func Min[T Kind]() T {
	var zero T
	v := reflect.New(reflect.TypeOf(zero)).Elem()
	switch v.Kind() {
	case reflect.Int8:
		v.SetInt(math.MinInt8)
	case reflect.Int16:
		v.SetInt(math.MinInt16)
	case reflect.Int32:
		v.SetInt(math.MinInt32)
	case reflect.Int, reflect.Int64:
		v.SetInt(math.MinInt64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(0)
	case reflect.Float32:
		v.SetFloat(-math.MaxFloat32)
	case reflect.Float64:
		v.SetFloat(-math.MaxFloat64)
	}
	return v.Interface().(T)
}

// Max returns the largest representable value of T.
func Max[T Kind]() T {
	var zero T
	v := reflect.New(reflect.TypeOf(zero)).Elem()
	switch v.Kind() {
	case reflect.Int8:
		v.SetInt(math.MaxInt8)
	case reflect.Int16:
		v.SetInt(math.MaxInt16)
	case reflect.Int32:
		v.SetInt(math.MaxInt32)
	case reflect.Int, reflect.Int64:
		v.SetInt(math.MaxInt64)
	case reflect.Uint8:
		v.SetUint(math.MaxUint8)
	case reflect.Uint16:
		v.SetUint(math.MaxUint16)
	case reflect.Uint32:
		v.SetUint(math.MaxUint32)
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		v.SetUint(math.MaxUint64)
	case reflect.Float32:
		v.SetFloat(math.MaxFloat32)
	case reflect.Float64:
		v.SetFloat(math.MaxFloat64)
	}
	return v.Interface().(T)
}
