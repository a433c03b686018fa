package cfg

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// The DOT rendering is deterministic for a hand-written stream (no
// uuid-suffixed locations), so it golden-snapshots cleanly.
func TestDotGolden(t *testing.T) {
	prog := mustParse(t, `
BeginFunction $f:IFBODY_1
AssignValue $l:y 1
Return0
AssignValue $l:c true
CallIf0 $l:c $f:IFBODY_1
AssignEval $l:x Plus(1, 2)
`)
	g := mustBuild(t, prog)
	snaps.MatchSnapshot(t, g.Dot())
}
