package srp

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpgate/internal/bigx"
)

var (
	// ErrProtocolViolation marks degenerate or replayed protocol values. The
	// current attempt must be abandoned and never retried automatically.
	ErrProtocolViolation = errors.New("srp protocol violation")

	// ErrFormat marks malformed hex or byte input.
	ErrFormat = bigx.ErrFormat

	// ErrConfiguration marks invalid engine options.
	ErrConfiguration = errors.New("invalid srp configuration")

	ErrInvalidServerValue = fmt.Errorf("%w: server public value is 0 mod N", ErrProtocolViolation)
	ErrInvalidClientValue = fmt.Errorf("%w: client public value is 0 mod N", ErrProtocolViolation)
	ErrZeroScrambler      = fmt.Errorf("%w: scrambling parameter u is zero", ErrProtocolViolation)
	ErrChallengeReused    = fmt.Errorf("%w: challenge already used", ErrProtocolViolation)
	ErrKeyPairReused      = fmt.Errorf("%w: ephemeral key pair already used", ErrProtocolViolation)
	ErrServerProof        = fmt.Errorf("%w: server evidence mismatch", ErrProtocolViolation)
)
