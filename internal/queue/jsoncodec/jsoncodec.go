// Package jsoncodec is the queue's single JSON entry point. It wraps sonic
// in its stdlib-compatible configuration so payload decoding and stats
// serialisation behave like encoding/json at sonic speed.
package jsoncodec

import "github.com/bytedance/sonic"

var codec = sonic.ConfigStd

// Marshal encodes v as compact JSON.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}
