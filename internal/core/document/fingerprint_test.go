package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStableAcrossClones(t *testing.T) {
	v := mustParse(t, `{"bridges":[{"name":"a","port":1883,"topics":["x","y"]}]}`)
	assert.Equal(t, Fingerprint(v), Fingerprint(v.Clone()))
}

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a := mustParse(t, `{"x":1,"y":2,"z":3}`)
	b := mustParse(t, `{"z":3,"y":2,"x":1}`)
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintSeparatesValues(t *testing.T) {
	cases := [][2]string{
		{`{"x":1}`, `{"x":2}`},
		{`{"x":1}`, `{"y":1}`},
		{`[1,2]`, `[2,1]`},
		{`"1"`, `1`},
		{`true`, `"true"`},
		{`null`, `""`},
		{`["ab","c"]`, `["a","bc"]`},
		{`{}`, `[]`},
	}
	for _, c := range cases {
		a, b := mustParse(t, c[0]), mustParse(t, c[1])
		assert.NotEqual(t, Fingerprint(a), Fingerprint(b), "%s vs %s", c[0], c[1])
	}
}
