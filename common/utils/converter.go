package utils

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/mr-tron/base58"
)

// PublicKeyToString renders a public key in base58
func PublicKeyToString(pk prt.PublicKey) string {
	return base58.Encode(pk[:])
}

// StringToPublicKey parses a base58 public key
func StringToPublicKey(str string) (prt.PublicKey, error) {
	var pk prt.PublicKey

	b, err := base58.Decode(str)
	if err != nil {
		return pk, fmt.Errorf("invalid public key string: %v", err)
	}
	if len(b) != prt.PublicKeyLength {
		return pk, fmt.Errorf("invalid public key length: %d (need %d bytes)", len(b), prt.PublicKeyLength)
	}

	copy(pk[:], b)
	return pk, nil
}

// HashToString renders a hash in base58
func HashToString(hash prt.Hash) string {
	return base58.Encode(hash[:])
}

// StringToHash parses a base58 hash
func StringToHash(str string) (prt.Hash, error) {
	var hash prt.Hash

	b, err := base58.Decode(str)
	if err != nil {
		return hash, fmt.Errorf("invalid hash string: %v", err)
	}
	if len(b) != prt.HashLength {
		return hash, fmt.Errorf("invalid hash length: %d (need %d bytes)", len(b), prt.HashLength)
	}

	copy(hash[:], b)
	return hash, nil
}

// HashToHex renders a hash as hex, used for database keys
func HashToHex(hash prt.Hash) string {
	return hex.EncodeToString(hash[:])
}

// SignatureToString renders a signature in base58
func SignatureToString(sig prt.Signature) string {
	return base58.Encode(sig[:])
}

// StringToSignature parses a base58 signature
func StringToSignature(str string) (prt.Signature, error) {
	var sig prt.Signature

	b, err := base58.Decode(str)
	if err != nil {
		return sig, fmt.Errorf("invalid signature string: %v", err)
	}
	if len(b) != prt.SignatureLength {
		return sig, fmt.Errorf("invalid signature length: %d (need %d bytes)", len(b), prt.SignatureLength)
	}

	copy(sig[:], b)
	return sig, nil
}

// Serialization formats
const (
	SerializationFormatGob = iota
	SerializationFormatJSON
)

// SerializeData serializes an object with the given format
func SerializeData(data interface{}, format int) ([]byte, error) {
	switch format {
	case SerializationFormatGob:
		return gobEncode(data)
	case SerializationFormatJSON:
		return json.Marshal(data)
	default:
		return nil, fmt.Errorf("unsupported serialization format: %d", format)
	}
}

// DeserializeData deserializes bytes into result with the given format
func DeserializeData(data []byte, result interface{}, format int) error {
	switch format {
	case SerializationFormatGob:
		return gobDecode(data, result)
	case SerializationFormatJSON:
		return json.Unmarshal(data, result)
	default:
		return fmt.Errorf("unsupported serialization format: %d", format)
	}
}

func gobEncode(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, result interface{}) error {
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	return nil
}

// Uint64ToString converts uint64 to decimal string
func Uint64ToString(value uint64) string {
	return strconv.FormatUint(value, 10)
}

// StringToUint32 parses a decimal uint32
func StringToUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// Uint64ToBytes converts uint64 to big endian bytes (for DB values)
func Uint64ToBytes(value uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return buf
}

// BytesToUint64 extracts a big endian uint64
func BytesToUint64(data []byte) uint64 {
	if len(data) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}
