package strategy

import (
	"errors"
	"strings"
	"testing"

	"tradebench/internal/domain"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string                                    { return s.name }
func (s *stubStrategy) Params() map[string]any                          { return map[string]any{} }
func (s *stubStrategy) GenerateSignals(_ []domain.Bar) []domain.Signal  { return nil }

func register(r *Registry, name string, aliases ...string) {
	r.Register(Schema{Name: name, Aliases: aliases}, func(_ map[string]any) (Strategy, error) {
		return &stubStrategy{name: name}, nil
	})
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	register(r, "test-strategy")

	got, err := r.Create("test-strategy", nil)
	if err != nil {
		t.Fatalf("Create returned error for registered strategy: %v", err)
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Create returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryCreateCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	register(r, "sma_cross", "sma_crossover")

	for _, name := range []string{"SMA_CROSS", "Sma_Crossover"} {
		if _, err := r.Create(name, nil); err != nil {
			t.Errorf("Create(%q): %v", name, err)
		}
	}
}

func TestRegistryCreateUnknown(t *testing.T) {
	r := NewRegistry()
	register(r, "alpha")

	_, err := r.Create("nonexistent", nil)
	if !errors.Is(err, ErrUnknown) {
		t.Errorf("Create of unknown strategy returned %v, want ErrUnknown", err)
	}
	// The error should name what is available.
	if err == nil || !strings.Contains(err.Error(), "alpha") {
		t.Errorf("error %v should list available strategies", err)
	}
}

func TestRegistryInvalidParams(t *testing.T) {
	r := NewRegistry()
	r.Register(Schema{Name: "strict"}, func(p map[string]any) (Strategy, error) {
		if len(p) > 0 {
			return nil, errors.New("no parameters accepted")
		}
		return &stubStrategy{name: "strict"}, nil
	})

	_, err := r.Create("strict", map[string]any{"x": 1.0})
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Create with rejected params returned %v, want ErrInvalidParams", err)
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	register(r, "beta")
	register(r, "alpha", "aliased-alpha")

	schemas := r.List()
	if len(schemas) != 2 {
		t.Fatalf("List returned %d schemas, want 2 (aliases must not duplicate)", len(schemas))
	}
	// List returns sorted names.
	if schemas[0].Name != "alpha" || schemas[1].Name != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", schemas)
	}
}
