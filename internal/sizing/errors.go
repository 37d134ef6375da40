package sizing

import (
	"errors"

	"github.com/dreamware/clawfind/internal/clawerr"
)

var (
	errNonPowerOfTwoPeers = clawerr.New(clawerr.KindConfig, "sizing.Plan", errors.New("sizing: peer count must be a power of two and > 0"))
	errZeroN              = clawerr.New(clawerr.KindConfig, "sizing.Plan", errors.New("sizing: n must be > 0"))
)
