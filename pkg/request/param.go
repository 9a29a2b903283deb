package request

// ParamType discriminates the value held by a Param.
type ParamType int

const (
	ParamString ParamType = iota
	ParamNumber
	ParamBlob
)

// Param is a small tagged union carried in a Request's parameter map.
// It holds exactly one of a string, a number, or a binary blob. Collectors
// document which keys they read; typed accessors replace dynamic field access.
type Param struct {
	typ  ParamType
	str  string
	num  float64
	blob []byte
}

// String wraps a string value.
func String(v string) Param { return Param{typ: ParamString, str: v} }

// Number wraps a numeric value.
func Number(v float64) Param { return Param{typ: ParamNumber, num: v} }

// Blob wraps a binary value. The slice is not copied; callers hand over
// ownership when constructing a request.
func Blob(v []byte) Param { return Param{typ: ParamBlob, blob: v} }

// Type returns the discriminant.
func (p Param) Type() ParamType { return p.typ }

// AsString returns the string value, false if the param holds another type.
func (p Param) AsString() (string, bool) {
	if p.typ != ParamString {
		return "", false
	}
	return p.str, true
}

// AsNumber returns the numeric value, false if the param holds another type.
func (p Param) AsNumber() (float64, bool) {
	if p.typ != ParamNumber {
		return 0, false
	}
	return p.num, true
}

// AsBlob returns the blob value, false if the param holds another type.
func (p Param) AsBlob() ([]byte, bool) {
	if p.typ != ParamBlob {
		return nil, false
	}
	return p.blob, true
}
