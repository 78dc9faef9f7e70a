package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID       string
	Category string
}

func TestLookup(t *testing.T) {
	for _, typ := range []string{JSONType, GobType} {
		codec, err := Lookup(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, codec.Type)

		data, err := codec.Marshal([]item{{ID: "1", Category: "general"}})
		require.NoError(t, err)

		var got []item
		require.NoError(t, codec.Unmarshal(data, &got))
		assert.Equal(t, []item{{ID: "1", Category: "general"}}, got)
	}

	_, err := Lookup("xml")
	assert.EqualError(t, err, "unsupported serialization type: xml")
}

func TestUnmarshal_Garbage(t *testing.T) {
	codec, err := Lookup(JSONType)
	require.NoError(t, err)

	var got item
	err = codec.Unmarshal([]byte("{not json"), &got)
	assert.ErrorContains(t, err, "failed to decode json value")
}
