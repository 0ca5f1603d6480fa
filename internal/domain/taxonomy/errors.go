package taxonomy

import "errors"

// ErrConfig marks a catalog that cannot be read or parsed. It is fatal.
var ErrConfig = errors.New("taxonomy config error")
