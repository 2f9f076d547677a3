package index

import (
	"bytes"

	"github.com/mobiwright/mobicore/varint"
)

// sealWithLength appends body's self-describing backward length and
// returns the complete TBS blob.
func sealWithLength(body *bytes.Buffer) []byte {
	body.Write(varint.SelfDescribingLength(body.Len()))
	return body.Bytes()
}

// noNodesTBS is the degenerate TBS for a record with no indexed content:
// a lone backward_vwi(1).
func noNodesTBS() []byte {
	return varint.EncodeBackward(1)
}
