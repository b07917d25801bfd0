package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	// Two logically-equal maps built in different insertion orders must
	// encode identically, including nested objects.
	a := map[string]interface{}{
		"zeta":  1,
		"alpha": map[string]interface{}{"b": 2, "a": 1},
	}
	b := map[string]interface{}{
		"alpha": map[string]interface{}{"a": 1, "b": 2},
		"zeta":  1,
	}

	encA, err := CanonicalJSON(a)
	assert.NoError(t, err)
	encB, err := CanonicalJSON(b)
	assert.NoError(t, err)

	assert.Equal(t, encA, encB)
	assert.Equal(t, `{"alpha":{"a":1,"b":2},"zeta":1}`, encA)
}

func TestCanonicalJSONNormalizesStructs(t *testing.T) {
	type sample struct {
		Z string `json:"z"`
		A string `json:"a"`
	}

	enc, err := CanonicalJSON(sample{Z: "last", A: "first"})
	assert.NoError(t, err)
	// Struct declaration order must not leak into the encoding.
	assert.Equal(t, `{"a":"first","z":"last"}`, enc)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(7.2, -5, 5))
	assert.Equal(t, -5.0, Clamp(-9.0, -5, 5))
	assert.Equal(t, 1.5, Clamp(1.5, -5, 5))
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 1.235, Round3(1.23456))
	assert.Equal(t, -0.5, Round3(-0.4999))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "", Fingerprint(""))

	fp := Fingerprint("super-secret-key")
	assert.Len(t, fp, 8)
	assert.NotContains(t, "super-secret-key", fp)
	assert.Equal(t, fp, Fingerprint("super-secret-key"))
}
