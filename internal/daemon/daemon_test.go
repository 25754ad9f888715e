package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"mediaharvest/internal/records"
	"mediaharvest/internal/sources"
	"mediaharvest/internal/testsupport"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	registry, err := sources.NewRegistry(nil, cfg.FetchTimeoutDuration())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	d, err := New(cfg, store, registry, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("status reports not running")
	}
	if status.LockFilePath == "" || status.DatabasePath == "" {
		t.Fatalf("status missing paths: %+v", status)
	}

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start on a running daemon must fail")
	}

	d.Stop()
	if d.running.Load() {
		t.Fatal("daemon still marked running after Stop")
	}
	// Stop twice is harmless.
	d.Stop()
}

func TestDaemonTriggerUnknownSource(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.TriggerHarvest("nope"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestAPIServerEndpoints(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	seed := &records.MediaRecord{
		Source:   "archive",
		SourceID: "x1",
		Title:    "Lighthouse at dusk",
		Status:   records.StatusEligible,
		Variants: []records.FileVariant{{Name: "standard", SHA1: "abc", FileExtension: "jpg"}},
	}
	if err := d.store.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	base := "http://" + d.api.Addr()

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	resp.Body.Close()
	if !status.Running {
		t.Fatalf("status = %+v", status)
	}

	resp, err = http.Get(base + "/api/records?source=archive")
	if err != nil {
		t.Fatalf("GET records: %v", err)
	}
	var listing struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	resp.Body.Close()
	if len(listing.Records) != 1 {
		t.Fatalf("records = %d", len(listing.Records))
	}

	resp, err = http.Post(base+"/api/records/archive/x1/reset-hashes", "application/json", nil)
	if err != nil {
		t.Fatalf("POST reset-hashes: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset-hashes status = %d", resp.StatusCode)
	}
	stored, _ := d.store.FindByID(context.Background(), "archive", "x1")
	if stored.Variants[0].SHA1 != "" {
		t.Fatal("hash not cleared through the API")
	}

	resp, err = http.Post(base+"/api/harvest?source=nope", "", nil)
	if err != nil {
		t.Fatalf("POST harvest: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("harvest trigger for unknown source = %d", resp.StatusCode)
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/stats?source=%s", base, "archive"))
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	var stats struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	resp.Body.Close()
	if stats.Total != 1 {
		t.Fatalf("stats total = %d", stats.Total)
	}
}
