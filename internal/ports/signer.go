package ports

// SignerPort is the signing capability consumed by bundle export and
// import. Implementations wrap whatever key material the operator
// provides; the engine never handles GPG primitives itself.
type SignerPort interface {
	// Ready reports whether the signer can produce signatures (key
	// material present and usable). Export consults this before
	// recording the gpg_signed flag.
	Ready() error

	// Sign writes a detached armored signature for the file and returns
	// the signature path.
	Sign(path string) (string, error)

	// Verify checks a detached signature against the public keys found
	// under keyringDir.
	Verify(path string, signaturePath string, keyringDir string) error
}
