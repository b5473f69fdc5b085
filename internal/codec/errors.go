package codec

import "errors"

// ErrDecode is returned when a raw value falls outside every documented
// encoding. Callers drop the update rather than guess.
var ErrDecode = errors.New("codec: undecodable raw value")
