package catalog

import (
	"context"
	"testing"

	"github.com/nidhogg/ruleta/internal/kv"
	"go.uber.org/zap"
)

var testDefaults = []Cajero{
	{Nombre: "Joaki", Numero: "1123365501"},
	{Nombre: "Facu", Numero: "1125127839"},
}

func TestLoadDefaults(t *testing.T) {
	c := New(kv.NewMemory(), testDefaults, zap.NewNop())

	got, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].Nombre != "Joaki" {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestReplaceOverridesDefaults(t *testing.T) {
	ctx := context.Background()
	c := New(kv.NewMemory(), testDefaults, zap.NewNop())

	replacement := []Cajero{{Nombre: "X", Numero: "1"}}
	if err := c.Replace(ctx, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Nombre != "X" {
		t.Errorf("expected replacement, got %+v", got)
	}
}

func TestReplaceEmpty(t *testing.T) {
	c := New(kv.NewMemory(), testDefaults, zap.NewNop())
	if err := c.Replace(context.Background(), nil); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
