package frame

import "github.com/banshee-data/flightpath/internal/check"

var errSVDFailed = check.New("frame: SVD factorisation of the rotation part failed")
