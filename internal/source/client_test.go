package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pbp/play_by_play_2023.csv" {
			http.Error(w, "no such season", http.StatusNotFound)
			return
		}
		w.Write([]byte("game_id,drive,play_type\n2023_01_DET_KC,1,pass\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/pbp/play_by_play_%d.csv")
	dir := t.TempDir()

	path, err := c.Download(context.Background(), 2023, dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "play_by_play_2023.csv" {
		t.Errorf("unexpected file name %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !strings.HasPrefix(string(data), "game_id,drive,play_type") {
		t.Errorf("unexpected content %q", data)
	}

	_, err = c.Download(context.Background(), 1999, dir)
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected HTTP 404 error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "play_by_play_1999.csv")); !os.IsNotExist(statErr) {
		t.Error("failed download should not leave a file behind")
	}
}

func TestDefaultURL(t *testing.T) {
	c := NewClient("")
	got := c.URL(2022)
	if !strings.HasSuffix(got, "/play_by_play_2022.csv.gz") {
		t.Errorf("unexpected default url %q", got)
	}
}

func TestDownloadCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(srv.URL+"/%d.csv").Download(ctx, 2023, t.TempDir()); err == nil {
		t.Error("expected error for cancelled context")
	}
}
