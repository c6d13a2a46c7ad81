package vcjwt

// Default limits applied when a Limits field is left zero.
const (
	DefaultMaxDataLength  = 8192
	DefaultMaxValueLength = 128
)

// Limits bounds the inputs a Verifier accepts.
//
// Zero fields take the package defaults. Negative fields are rejected at
// construction time.
type Limits struct {
	// MaxDataLength caps the signing input (or suffix) length in bytes.
	MaxDataLength int
	// MaxValueLength caps the claim value length in bytes.
	MaxValueLength int
}

func (l Limits) withDefaults() Limits {
	if l.MaxDataLength == 0 {
		l.MaxDataLength = DefaultMaxDataLength
	}
	if l.MaxValueLength == 0 {
		l.MaxValueLength = DefaultMaxValueLength
	}
	return l
}

func (l Limits) validate() error {
	if l.MaxDataLength <= 0 {
		return newError(KindRange, "VCJWT-CFG-001", "MaxDataLength must be positive")
	}
	if l.MaxValueLength <= 0 {
		return newError(KindRange, "VCJWT-CFG-002", "MaxValueLength must be positive")
	}
	return nil
}
