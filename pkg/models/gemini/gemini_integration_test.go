package gemini_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nstogner/diagrammer/pkg/models"
	"github.com/nstogner/diagrammer/pkg/models/gemini"
)

func TestUnconfiguredProvider(t *testing.T) {
	ctx := context.Background()
	p, err := gemini.New(ctx, "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Available(ctx) {
		t.Error("provider without key should be unavailable")
	}
	_, err = p.Stream(ctx, []models.Message{{Role: models.RoleUser, Text: "hi"}})
	if !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("Stream err = %v, want ErrUnavailable", err)
	}
}

func TestIntegration_Gemini(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping Gemini integration test: GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := gemini.New(ctx, apiKey, os.Getenv("DIAGRAMMER_MODEL"))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	defer p.Close()

	if !p.Available(ctx) {
		t.Fatal("configured provider reports unavailable")
	}

	names, err := p.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list models: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("No models found")
	}

	stream, err := p.Stream(ctx, []models.Message{
		{Role: models.RoleSystem, Text: "Reply with the single word: pong"},
		{Role: models.RoleUser, Text: "ping"},
	})
	if err != nil {
		t.Fatalf("Stream creation failed: %v", err)
	}
	reply, err := models.Accumulate(stream)
	if err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}
	t.Logf("Response: %s", reply)
	if !strings.Contains(strings.ToLower(reply), "pong") {
		t.Errorf("unexpected reply %q", reply)
	}
}
