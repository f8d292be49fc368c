package store

import (
	"encoding/binary"

	"github.com/mezonai/tokenledger/jsonx"
)

func encode(v interface{}) ([]byte, error) {
	return jsonx.Marshal(v)
}

func decode(data []byte, v interface{}) error {
	return jsonx.Unmarshal(data, v)
}

// indexKey appends the big-endian index to prefix so keys sort in index order
func indexKey(prefix string, index uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], index)
	return key
}
