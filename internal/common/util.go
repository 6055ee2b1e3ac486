package common

// WipeByteArray overwrites the contents of b with zeros. Used to drop
// password buffers from memory once their value has been consumed.
// A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
