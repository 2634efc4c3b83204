// Package labeler derives human-readable annotations for canonical events.
// Labeling is pure: no I/O, no lookups beyond the event's own typed fields
// and the supplied chain identifier, so it never blocks and never fails due
// to external unavailability.
package labeler

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// Labeler produces the annotation for events of a single contract standard.
// Implementations must be total over that standard's kind set, including
// zero-address and zero-amount edge cases.
type Labeler interface {
	Standard() events.Standard
	Label(chainID uint64, ev *events.CanonicalEvent) (events.Label, error)
}

// Set selects the labeler for an event by its owning standard.
type Set struct {
	labelers map[events.Standard]Labeler
}

// NewSet returns a Set covering every supported standard.
func NewSet() *Set {
	s := &Set{labelers: make(map[events.Standard]Labeler)}
	for _, l := range []Labeler{
		ERC20Labeler{},
		ERC721Labeler{},
		CompoundGovLabeler{},
		TimelockLabeler{},
		AaveGovLabeler{},
	} {
		s.labelers[l.Standard()] = l
	}
	return s
}

// Label annotates a canonical event. The only error condition is an event
// whose standard has no registered labeler, which indicates a wiring bug
// rather than bad input.
func (s *Set) Label(chainID uint64, ev *events.CanonicalEvent) (events.Label, error) {
	l, ok := s.labelers[ev.Standard]
	if !ok {
		return events.Label{}, fmt.Errorf("no labeler for standard %q", ev.Standard)
	}
	return l.Label(chainID, ev)
}

var zeroAddress = common.Address{}.Hex()

func isZero(addr string) bool {
	return addr == zeroAddress || addr == ""
}

// short renders an address in 0x1234…abcd form for label text.
func short(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// fallback is the defensive label used when an event's typed payload does not
// match its kind's expected shape. Labeling must not crash on any
// syntactically valid input.
func fallback(ev *events.CanonicalEvent) events.Label {
	return events.Label{
		Heading: ev.Kind.Heading(),
		Label:   fmt.Sprintf("%s event observed at %s", ev.Kind.Heading(), short(ev.ContractAddress)),
	}
}

func label(kind events.EventKind, format string, args ...any) events.Label {
	return events.Label{
		Heading: kind.Heading(),
		Label:   fmt.Sprintf(format, args...),
	}
}
