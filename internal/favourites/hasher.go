package favourites

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
)

// ハッシュ方式。方式の異なるハッシュ同士は比較できず、
// 一方の方式で保存したレコードはもう一方の方式では見つからない。
const (
	SchemeSHA256 = "sha256" // 64桁の16進数
	SchemeFNV1a  = "fnv1a"  // 32ビット、8桁の16進数
)

// sha256の自己診断に使う既知の値。
const (
	sha256Probe       = "abc"
	sha256ProbeDigest = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
)

// Hasher はURLから内容由来の識別子（urlHash）を計算する。
// 方式は起動時に一度だけ決定し、以降の呼び出しで再判定しない。
type Hasher struct {
	scheme string
	fn     func(string) string
}

// NewHasher は指定方式のHasherを生成する。空文字列はsha256として扱う。
// sha256が自己診断に失敗した場合はfnv1aにフォールバックする。
func NewHasher(scheme string) (*Hasher, error) {
	switch scheme {
	case "", SchemeSHA256:
		if sha256Hex(sha256Probe) != sha256ProbeDigest {
			return &Hasher{scheme: SchemeFNV1a, fn: fnv1aHex}, nil
		}
		return &Hasher{scheme: SchemeSHA256, fn: sha256Hex}, nil
	case SchemeFNV1a:
		return &Hasher{scheme: SchemeFNV1a, fn: fnv1aHex}, nil
	default:
		return nil, fmt.Errorf("unsupported favourites hash scheme: %q", scheme)
	}
}

// Scheme は決定済みのハッシュ方式を返す。
func (h *Hasher) Scheme() string {
	return h.scheme
}

// Hash はurlのハッシュを返す。同じ文字列に対しては常に同じ値を返す。
func (h *Hasher) Hash(url string) string {
	return h.fn(url)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fnv1aHex(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
