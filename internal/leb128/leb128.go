package leb128

import (
	"errors"
	"fmt"
)

const (
	maxVarintLen32 = 5
	maxVarintLen64 = 10
)

var (
	errOverflow32 = errors.New("overflows a 32-bit integer")
	errOverflow33 = errors.New("overflows a 33-bit integer")
	errOverflow64 = errors.New("overflows a 64-bit integer")
)

// EncodeInt32 encodes the signed value into a buffer in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt32(value int32) []byte {
	return EncodeInt64(int64(value))
}

// EncodeInt64 encodes the signed value into a buffer in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt64(value int64) (buf []byte) {
	for {
		// Take 7 remaining low-order bits from the value into b.
		b := uint8(value & 0x7f)
		value = value >> 7

		// If there are remaining bits, the value must be encoded continuously. See EncodeUint64.
		if (value != 0 || b&0x40 != 0) && (value != -1 || b&0x40 == 0) {
			b |= 0x80
		}
		buf = append(buf, b)
		if b&0x80 == 0 {
			break
		}
	}
	return buf
}

// EncodeUint32 encodes the value into a buffer in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint32(value uint32) []byte {
	return EncodeUint64(uint64(value))
}

// EncodeUint64 encodes the value into a buffer in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint64(value uint64) (buf []byte) {
	// This is effectively a do/while loop where we take 7 bits of the value until the next byte is not needed.
	for {
		b := uint8(value & 0x7f)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if b&0x80 == 0 {
			return buf
		}
	}
}

// LoadUint32 reads an unsigned 32-bit integer in LEB128 format from buf,
// returning the value and the number of bytes consumed.
func LoadUint32(buf []byte) (uint32, uint64, error) {
	v, n, err := LoadUint64(buf)
	if err != nil {
		return 0, 0, err
	} else if v >= 1<<32 {
		return 0, 0, errOverflow32
	}
	return uint32(v), n, nil
}

// LoadUint64 reads an unsigned 64-bit integer in LEB128 format from buf,
// returning the value and the number of bytes consumed.
func LoadUint64(buf []byte) (uint64, uint64, error) {
	var result uint64
	var shift uint64
	for i := 0; i < len(buf); i++ {
		if i >= maxVarintLen64 {
			return 0, 0, errOverflow64
		}
		b := buf[i]
		// Unmask the top bit (used to signal continuation), shift the 7 bits
		// into position, and continue if the continuation bit was set.
		result |= (uint64(b) & 0x7f) << shift
		if b&0x80 == 0 {
			if shift == 63 && b != 0 && b != 1 {
				return 0, 0, errOverflow64
			}
			return result, uint64(i) + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("buffer too small to decode uint64")
}

// LoadInt32 reads a signed 32-bit integer in LEB128 format from buf,
// returning the value and the number of bytes consumed.
func LoadInt32(buf []byte) (int32, uint64, error) {
	var result int64
	var shift, n uint64
	for {
		if n >= uint64(len(buf)) {
			return 0, 0, fmt.Errorf("buffer too small to decode int32")
		} else if n >= maxVarintLen32 {
			return 0, 0, errOverflow32
		}
		b := buf[n]
		result |= (int64(b) & 0x7f) << shift
		shift += 7
		n++
		if b&0x80 == 0 {
			if shift < 32 && b&0x40 != 0 {
				result |= ^0 << shift
			}
			// The top bits beyond 32 must agree with the sign bit.
			if n == maxVarintLen32 {
				if b&0b1111_0000 != 0b0111_0000 && b&0b1111_1000 != 0 {
					return 0, 0, errOverflow32
				}
			}
			return int32(result), n, nil
		}
	}
}

// LoadInt33AsInt64 reads a signed 33-bit integer in LEB128 format from buf
// as an int64. This is the encoding of block types: a negative value is a
// single-byte type tag, a non-negative value is a type section index.
func LoadInt33AsInt64(buf []byte) (int64, uint64, error) {
	var result int64
	var shift, n uint64
	for {
		if n >= uint64(len(buf)) {
			return 0, 0, fmt.Errorf("buffer too small to decode int33")
		} else if n >= maxVarintLen32 {
			return 0, 0, errOverflow33
		}
		b := buf[n]
		result |= (int64(b) & 0x7f) << shift
		shift += 7
		n++
		if b&0x80 == 0 {
			if shift < 33 && b&0x40 != 0 {
				result |= ^0 << shift
			}
			return result, n, nil
		}
	}
}

// LoadInt64 reads a signed 64-bit integer in LEB128 format from buf,
// returning the value and the number of bytes consumed.
func LoadInt64(buf []byte) (int64, uint64, error) {
	var result int64
	var shift, n uint64
	for {
		if n >= uint64(len(buf)) {
			return 0, 0, fmt.Errorf("buffer too small to decode int64")
		} else if n >= maxVarintLen64 {
			return 0, 0, errOverflow64
		}
		b := buf[n]
		result |= (int64(b) & 0x7f) << shift
		shift += 7
		n++
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= ^0 << shift
			}
			if n == maxVarintLen64 && b != 0 && b != 0x7f {
				return 0, 0, errOverflow64
			}
			return result, n, nil
		}
	}
}
