package interactive

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkval/nvldiag/cmd/nvldiag/commands"
	"github.com/linkval/nvldiag/internal/config"
)

func newShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Parse([]byte(`
devices:
  - {id: gpu0, generation: nvl2, links: 2}
  - {id: gpu1, generation: nvl4, links: 2}
`))
	require.NoError(t, err)
	setup, err := commands.BuildFleet(cfg, nil, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	return NewShell(setup.Fleet, setup.Sims, &out), &out
}

// run executes line and returns what it printed.
func run(t *testing.T, s *Shell, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	assert.False(t, s.Exec(context.Background(), line), "%q requested exit", line)
	return out.String()
}

func TestShellSelectsFirstDevice(t *testing.T) {
	s, out := newShell(t)

	got := run(t, s, out, "devices")
	assert.Contains(t, got, "* gpu0")
	assert.Contains(t, got, "  gpu1")
	assert.Contains(t, got, "IDLE")

	run(t, s, out, "use gpu1")
	assert.Contains(t, run(t, s, out, "ls"), "* gpu1")
	assert.Contains(t, run(t, s, out, "use gpu9"), `unknown device "gpu9"`)
}

func TestShellRequiresInit(t *testing.T) {
	s, out := newShell(t)

	assert.Contains(t, run(t, s, out, "counts 0"), "Error: ")
	assert.Empty(t, run(t, s, out, "init"))
	assert.Contains(t, run(t, s, out, "links"), "link 1")
}

func TestShellCounters(t *testing.T) {
	s, out := newShell(t)
	run(t, s, out, "init")

	assert.Empty(t, run(t, s, out, "inject 0 tx_replay 3"))
	assert.Regexp(t, `TX_REPLAY\s+3`, run(t, s, out, "counts 0"))

	assert.Empty(t, run(t, s, out, "clear 0"))
	run(t, s, out, "inject 0 tx_replay 2")
	assert.Regexp(t, `TX_REPLAY\s+5`, run(t, s, out, "counts 0"))

	assert.Contains(t, run(t, s, out, "inject 0 bogus 1"), "unknown error kind")
}

func TestShellPowerAndEom(t *testing.T) {
	s, out := newShell(t)
	run(t, s, out, "init")

	got := run(t, s, out, "eom 0 y 7 10 2")
	assert.Contains(t, got, "lane 0  0x01")
	assert.Contains(t, got, "lane 1  0x01")
	assert.Contains(t, run(t, s, out, "eom 0 zz 1 1 1"), "unknown EOM mode")

	run(t, s, out, "use gpu1")
	run(t, s, out, "init")
	got = run(t, s, out, "power 0 low")
	assert.Contains(t, got, "TX current")
	assert.Contains(t, got, "configured LOW_POWER")
	assert.Contains(t, run(t, s, out, "power 0 off"), "Usage: power")
}

func TestShellIobist(t *testing.T) {
	s, out := newShell(t)
	run(t, s, out, "init")
	assert.Contains(t, run(t, s, out, "iobist show 0"), "UNSUPPORTED")

	run(t, s, out, "use gpu1")
	run(t, s, out, "init")
	assert.Empty(t, run(t, s, out, "iobist type 0,1 pre_train"))
	assert.Empty(t, run(t, s, out, "iobist time 0 1s"))
	assert.Contains(t, run(t, s, out, "iobist show 0"), "type PRE_TRAIN time 1s")
	assert.Contains(t, run(t, s, out, "iobist flags 0,1"), "no failures")
	assert.Contains(t, run(t, s, out, "iobist time 0 2s"), "invalid self-test time")
}

func TestShellUsage(t *testing.T) {
	s, out := newShell(t)

	assert.Contains(t, run(t, s, out, "counts"), "Usage: counts <link>")
	assert.Contains(t, run(t, s, out, "toggle 0 start 1"), "Usage: toggle")
	assert.Contains(t, run(t, s, out, "frobnicate"), "Unknown command: frobnicate")
	assert.Contains(t, run(t, s, out, "counts x"), `invalid link "x"`)
	assert.Empty(t, run(t, s, out, "   "))

	out.Reset()
	assert.True(t, s.Exec(context.Background(), "quit"))
	assert.Contains(t, out.String(), "Exiting...")
}
