package serialization

import (
	"encoding/gob"
	"encoding/json"
	"io"
)

// Json wraps json.Decoder and json.Encoder.
type Json struct {
	dec *json.Decoder
	enc *json.Encoder
}

func (j *Json) Decode(v any) error {
	return j.dec.Decode(v)
}

func (j *Json) Encode(v any) error {
	return j.enc.Encode(v)
}

// JsonDecoder returns a Decoder reading JSON from r.
func JsonDecoder(r io.Reader) Decoder {
	return &Json{dec: json.NewDecoder(r)}
}

// JsonEncoder returns an Encoder writing JSON to w. Article text is kept
// verbatim, so HTML escaping is off.
func JsonEncoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Json{enc: enc}
}

// Gob wraps gob.Decoder and gob.Encoder.
type Gob struct {
	dec *gob.Decoder
	enc *gob.Encoder
}

// Decode decodes a value from the underlying gob.Decoder into v.
func (g *Gob) Decode(v any) error {
	return g.dec.Decode(v)
}

// Encode serializes v using gob encoding.
func (g *Gob) Encode(v any) error {
	return g.enc.Encode(v)
}

// GobDecoder returns a Decoder reading gob data from r.
func GobDecoder(r io.Reader) Decoder {
	return &Gob{dec: gob.NewDecoder(r)}
}

// GobEncoder returns an Encoder writing gob data to w.
func GobEncoder(w io.Writer) Encoder {
	return &Gob{enc: gob.NewEncoder(w)}
}
