package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/orgboard/internal/apperr"
	"github.com/starford/orgboard/internal/checksum"
	"github.com/starford/orgboard/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFileGateway_FreshChart(t *testing.T) {
	g := NewFileGateway(tempData(t), "", quietLogger())
	c, err := g.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Equal(models.DefaultChart()) {
		t.Errorf("fresh chart = %+v", c)
	}
	d := c.Departments[0]
	if d.Name != "Available Roles" || len(d.Levels) != 1 || len(d.Levels[0].Roles) != 0 {
		t.Errorf("unexpected available department: %+v", d)
	}
	if g.LastChecksum() != "" {
		t.Errorf("checksum should be empty before any save")
	}
}

func TestFileGateway_SaveOverwrites(t *testing.T) {
	fs := tempData(t)
	g := NewFileGateway(fs, "chart.json", quietLogger())
	ctx := context.Background()

	first := models.DefaultChart()
	first.Departments[0].Levels[0].Roles = []string{"Engineer"}
	if err := g.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := models.DefaultChart()
	second.Departments = append(second.Departments, models.Department{
		ID: "eng", Name: "Engineering", Levels: []models.Level{{ID: "eng-0", Roles: []string{"Engineer"}}},
	})
	if err := g.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := NewFileGateway(fs, "chart.json", quietLogger()).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(second) {
		t.Errorf("loaded %+v, want %+v", got, second)
	}

	raw, _ := fs.Read("chart.json")
	if g.LastChecksum() != checksum.Sum(raw) {
		t.Error("LastChecksum should match the bytes on disk")
	}
}

func TestFileGateway_CorruptSnapshot(t *testing.T) {
	fs := tempData(t)
	_ = fs.Write("chart.json", []byte("not json"))
	_, err := NewFileGateway(fs, "chart.json", quietLogger()).Load(context.Background())
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid snapshot error, got %v", err)
	}
}

func TestFileGateway_PreservesRoleCasing(t *testing.T) {
	fs := tempData(t)
	g := NewFileGateway(fs, "chart.json", quietLogger())
	c := models.DefaultChart()
	c.Departments[0].Levels[0].Roles = []string{"iOS Developer"}
	if err := g.Save(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	raw, _ := fs.Read("chart.json")
	if !strings.Contains(string(raw), `"iOS Developer"`) {
		t.Errorf("role casing lost: %s", raw)
	}
}

func TestMemoryGateway(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	c, _ := g.Load(ctx)
	if !c.Equal(models.DefaultChart()) {
		t.Errorf("empty memory gateway should load the default chart")
	}

	c.Departments[0].Levels[0].Roles = []string{"QA"}
	if err := g.Save(ctx, c); err != nil {
		t.Fatal(err)
	}
	c.Departments[0].Levels[0].Roles[0] = "mutated"

	got, _ := g.Load(ctx)
	if got.Departments[0].Levels[0].Roles[0] != "QA" {
		t.Error("memory gateway must store a copy")
	}
	if g.Saves() != 1 {
		t.Errorf("saves = %d, want 1", g.Saves())
	}
}
