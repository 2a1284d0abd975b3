package stoat

import (
	"time"

	"github.com/stoatbridge/stoatbridge/internal/uniuri"
)

// ulidChars is the Crockford base32 alphabet the platform uses for ids.
var ulidChars = []byte("0123456789ABCDEFGHJKMNPQRSTVWXYZ")

const (
	ulidTimeLen   = 10
	ulidRandomLen = 16
)

// newULID returns a fresh 26-character identifier: a millisecond timestamp
// prefix followed by random characters. Category ids created client-side
// must look like the ids the platform generates itself.
func newULID() string {
	ms := time.Now().UnixMilli()
	buf := make([]byte, ulidTimeLen, ulidTimeLen+ulidRandomLen)

	for i := ulidTimeLen - 1; i >= 0; i-- {
		buf[i] = ulidChars[ms%int64(len(ulidChars))]
		ms /= int64(len(ulidChars))
	}

	return string(append(buf, uniuri.NewLenCharsBytes(ulidRandomLen, ulidChars)...))
}
