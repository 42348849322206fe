package relay

import "encoding/binary"

// EncodeU16 大端编码 16 位无符号整数
func EncodeU16(v uint16) [2]byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b
}

// EncodeU32 大端编码 32 位无符号整数
func EncodeU32(v uint32) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b
}

// DecodeU16 从 b 的前 2 字节读取大端 uint16（调用方保证长度足够）
func DecodeU16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b[:2])
}

// DecodeU32 从 b 的前 4 字节读取大端 uint32（调用方保证长度足够）
func DecodeU32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b[:4])
}
