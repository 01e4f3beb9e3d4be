package protocol

// Checksum32 is the rolling 32-bit integrity hash carried by sync chunks
// and patches. It detects accidental corruption only; it is not a
// cryptographic digest and must not be relied on against tampering.
func Checksum32(data []byte) (h uint32) {
	for _, b := range data {
		h = (h << 5) - h + uint32(b)
	}
	return
}
