package nvldiag_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linkval/nvldiag/cmd/nvldiag/commands"
	"github.com/linkval/nvldiag/internal/config"
	"github.com/linkval/nvldiag/pkg/eom"
	"github.com/linkval/nvldiag/pkg/fleet"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/log"
	"github.com/linkval/nvldiag/pkg/metrics"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/privilege"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/report"
)

const testConfig = `
concurrency: 2
devices:
  - id: gpu0
    generation: nvl2
    links: 2
    unlockSecret: s3cret
  - id: gpu1
    generation: nvl4
    links: 4
    inactive: [3]
`

func newSetup(t *testing.T, events log.Logger) *commands.Setup {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	setup, err := commands.BuildFleet(cfg, events, nil)
	if err != nil {
		t.Fatalf("Failed to build fleet: %v", err)
	}
	if err := setup.Fleet.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize fleet: %v", err)
	}
	t.Cleanup(func() { _ = setup.Fleet.Shutdown() })
	return setup
}

// TestE2E_SweepWithTrace runs a sweep against a fleet with injected errors
// and checks the saved report and the event trace.
func TestE2E_SweepWithTrace(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tracePath := filepath.Join(t.TempDir(), "trace.dlog")
	fl, err := log.NewFileLogger(tracePath)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}
	setup := newSetup(t, fl)

	// 1000 replays on gpu0 link 1 exceed the count threshold of 100.
	setup.Sims["gpu0"].InjectErrors(1, model.CounterSet{model.ErrTxReplay: {Count: 1000}})

	store := report.NewStore(filepath.Join(t.TempDir(), "report.json"))
	plan := fleet.Plan{Iobist: true, ClearCounters: true}
	snap, err := commands.RunSweep(context.Background(), setup.Fleet, plan, store, io.Discard)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if snap.Violations() != 1 {
		t.Errorf("Expected 1 violation, got %d", snap.Violations())
	}
	if snap.Failed() {
		t.Errorf("Sweep recorded failures: %+v", snap.Devices)
	}

	gpu1, ok := snap.Device("gpu1")
	if !ok {
		t.Fatal("gpu1 missing from report")
	}
	if len(gpu1.Links) != 4 || gpu1.Links[3].Power != nil {
		t.Errorf("Inactive link 3 should be listed without power status: %+v", gpu1.Links)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to load report: %v", err)
	}
	if saved.ID != snap.ID || saved.Violations() != 1 {
		t.Errorf("Saved report differs: id %s, %d violations", saved.ID, saved.Violations())
	}

	// Counters were cleared, but the accumulated value survives.
	d, _ := setup.Fleet.Get("gpu0")
	counts, err := d.GetErrorCounts(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetErrorCounts failed: %v", err)
	}
	if got := counts.Get(model.ErrTxReplay).Count; got != 1000 {
		t.Errorf("Expected 1000 accumulated replays after clear, got %d", got)
	}

	if err := fl.Close(); err != nil {
		t.Fatalf("Failed to close trace: %v", err)
	}
	stats, err := commands.CollectStats(tracePath)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(stats.Sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(stats.Sessions))
	}
	// Two reads per link of the sweep (counts and thresholds), and the read above.
	if op := stats.Operations["GetErrorCounts"]; op == nil || op.Calls != 13 {
		t.Errorf("Unexpected GetErrorCounts stats: %+v", op)
	}
	if op := stats.Operations["ClearHwErrorCounts"]; op == nil || op.Failures != 0 {
		t.Errorf("Unexpected ClearHwErrorCounts stats: %+v", op)
	}
}

// TestE2E_MetricsScrape scrapes the metrics endpoint of a fleet.
func TestE2E_MetricsScrape(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	setup := newSetup(t, nil)
	setup.Sims["gpu1"].InjectErrors(2, model.CounterSet{model.ErrRxCrcFlit: {Count: 4}})

	collector := metrics.NewCollector(metrics.DefaultConfig())
	for _, d := range setup.Fleet.Devices() {
		collector.Add(d)
	}
	handler, err := metrics.Handler(collector)
	if err != nil {
		t.Fatalf("Failed to create handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	for _, want := range []string{
		`nvldiag_link_errors_total{device="gpu1",kind="RX_CRC_FLIT",link="2"} 4`,
		`nvldiag_link_active{device="gpu1",link="3"} 0`,
		`nvldiag_link_active{device="gpu0",link="0"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Scrape missing %s", want)
		}
	}
	if strings.Contains(string(body), "nvldiag_scrape_errors_total") {
		t.Errorf("Scrape reported errors:\n%s", body)
	}
}

// TestE2E_PrivilegedPowerRequest unlocks a write-locked power register
// with a signed credential.
func TestE2E_PrivilegedPowerRequest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	setup := newSetup(t, nil)
	sim := setup.Sims["gpu0"]
	sim.Port().LockWrite(sim.Profile().PowerRegs().Disable, regport.PrivLevel2)
	d, _ := setup.Fleet.Get("gpu0")

	err := d.RequestPowerState(0, model.PowerLowPower, false)
	if !errors.Is(err, linkerr.PrivilegeViolation) {
		t.Fatalf("Expected privilege violation, got %v", err)
	}

	// A credential for another device is rejected.
	other, err := privilege.Issue([]byte("s3cret"), "gpu1", regport.PrivLevel2, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Failed to issue credential: %v", err)
	}
	if err := d.Unlock(other); !errors.Is(err, linkerr.PrivilegeViolation) {
		t.Fatalf("Expected privilege violation for foreign credential, got %v", err)
	}

	cred, err := privilege.Issue([]byte("s3cret"), "gpu0", regport.PrivLevel2, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Failed to issue credential: %v", err)
	}
	parsed, err := privilege.ParseCredential(cred.String())
	if err != nil {
		t.Fatalf("Failed to parse credential: %v", err)
	}
	if err := d.Unlock(parsed); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := d.RequestPowerState(0, model.PowerLowPower, false); err != nil {
		t.Fatalf("RequestPowerState after unlock failed: %v", err)
	}
}

// TestE2E_ConcurrentDiagnostics runs counter reads and eye measurements on
// the same device from several goroutines.
func TestE2E_ConcurrentDiagnostics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	setup := newSetup(t, nil)
	sim := setup.Sims["gpu1"]
	d, _ := setup.Fleet.Get("gpu1")
	ctx := context.Background()

	const rounds = 20
	sim.InjectErrors(0, model.CounterSet{model.ErrTxReplay: {Count: rounds}})

	var wg sync.WaitGroup
	errs := make(chan error, 3*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			if err := d.ClearHwErrorCounts(ctx, 0); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := d.GetErrorCounts(ctx, 0); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := d.GetEomStatus(ctx, 1, eomRequest()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}

	counts, err := d.GetErrorCounts(ctx, 0)
	if err != nil {
		t.Fatalf("GetErrorCounts failed: %v", err)
	}
	if got := counts.Get(model.ErrTxReplay).Count; got != rounds {
		t.Errorf("Expected %d replays, got %d", rounds, got)
	}
	if sim.EomEnabled(1) {
		t.Error("EOM left enabled after measurements")
	}
}

func eomRequest() eom.Request {
	return eom.Request{Mode: model.EomModeY, NumErrors: 7, NumBlocks: 10, NumLanes: 2}
}
