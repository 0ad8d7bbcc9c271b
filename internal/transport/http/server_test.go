package httptransport

import (
	"net/http"
	"testing"
	"time"
)

func TestTrackUploadConfig(t *testing.T) {
	cfg := TrackUploadConfig(":9090")

	if cfg.Address != ":9090" {
		t.Fatalf("unexpected address %q", cfg.Address)
	}
	if cfg.ReadTimeout != 2*time.Minute || cfg.WriteTimeout != 2*time.Minute {
		t.Fatalf("upload profile must allow slow multi-megabyte bodies, got read=%v write=%v", cfg.ReadTimeout, cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Fatalf("unexpected idle timeout %v", cfg.IdleTimeout)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := TrackUploadConfig(":9091")
	srv := NewServer(cfg, http.NotFoundHandler())

	if srv.Addr != cfg.Address {
		t.Fatalf("address not applied: %q", srv.Addr)
	}
	if srv.ReadTimeout != cfg.ReadTimeout || srv.WriteTimeout != cfg.WriteTimeout || srv.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("timeouts not applied: %+v", srv)
	}
	if srv.Handler == nil {
		t.Fatal("handler not applied")
	}
}
