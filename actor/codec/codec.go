// Package codec defines the serialization contract the actor runtime uses to
// turn method arguments, return values, and reminder/timer state into the
// bytes exchanged with the sidecar.
package codec

import "encoding/json"

// Codec marshals and unmarshals the opaque payloads carried across the
// sidecar boundary: method arguments and return values, and timer/reminder
// state blobs.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// JSON is the default Codec, backed by encoding/json. It is the only codec
// this runtime ships; user-chosen alternative serializers can be plugged in
// by implementing Codec themselves and passing it into the RuntimeContext at
// registration time.
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
