package serialization

import (
	"bytes"
	"fmt"
	"io"
)

const (

	// JSONType represents the serialization type for JSON format.
	JSONType = "json"

	// GobType represents the serialization type for Gob format.
	GobType = "gob"
)

// Decoder and Encoder are the interface for serialization.
type Decoder interface {
	Decode(v any) error
}

// Encoder and Decoder are the interface for serialization.
type Encoder interface {
	Encode(v any) error
}

// Codec pairs the encoder and decoder factories of one serialization type.
type Codec struct {
	Type    string
	Encoder func(io.Writer) Encoder
	Decoder func(io.Reader) Decoder
}

// Lookup returns the codec registered for typ.
func Lookup(typ string) (Codec, error) {
	switch typ {
	case JSONType:
		return Codec{Type: JSONType, Encoder: JsonEncoder, Decoder: JsonDecoder}, nil
	case GobType:
		return Codec{Type: GobType, Encoder: GobEncoder, Decoder: GobDecoder}, nil
	default:
		return Codec{}, fmt.Errorf("unsupported serialization type: %s", typ)
	}
}

// Marshal encodes v into a byte slice.
func (c Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %s value: %w", c.Type, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v, which must be a pointer.
func (c Codec) Unmarshal(data []byte, v any) error {
	if err := c.Decoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s value: %w", c.Type, err)
	}
	return nil
}
