package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

// stubModule is a test double for Module.
type stubModule struct {
	name          string
	commands      []*discordgo.ApplicationCommand
	handlers      map[string]InteractionHandler
	eventHandlers []EventHandler
	initErr       error
	shutErr       error
}

func (m *stubModule) Name() string                                   { return m.name }
func (m *stubModule) Commands() []*discordgo.ApplicationCommand      { return m.commands }
func (m *stubModule) CommandHandlers() map[string]InteractionHandler { return m.handlers }
func (m *stubModule) EventHandlers() []EventHandler                  { return m.eventHandlers }
func (m *stubModule) Init(deps ModuleDependencies) error             { return m.initErr }
func (m *stubModule) Shutdown() error                                { return m.shutErr }

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name      string
		modules   []string
		wantNames []string
	}{
		{name: "single", modules: []string{"radio"}, wantNames: []string{"radio"}},
		{name: "keeps order", modules: []string{"radio", "admin"}, wantNames: []string{"radio", "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			for _, name := range tt.modules {
				reg.Register(&stubModule{name: name})
			}

			got := moduleNames(reg.Modules())
			if len(got) != len(tt.wantNames) {
				t.Fatalf("expected %d modules, got %d", len(tt.wantNames), len(got))
			}
			for i := range got {
				if got[i] != tt.wantNames[i] {
					t.Errorf("module %d: expected %q, got %q", i, tt.wantNames[i], got[i])
				}
			}
		})
	}
}

func TestRegistry_RegisterDuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubModule{name: "radio"})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate module name")
		}
	}()
	reg.Register(&stubModule{name: "radio"})
}

func TestRegistry_ModulesReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()

	reg.Register(&stubModule{name: "module-1"})

	modules := reg.Modules()
	reg.Register(&stubModule{name: "module-2"})

	if len(modules) != 1 {
		t.Errorf("expected snapshot to have 1 module, got %d", len(modules))
	}
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobalRegistry()
	t.Cleanup(ResetGlobalRegistry)

	Register(&stubModule{name: "global-test"})

	modules := Modules()
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if modules[0].Name() != "global-test" {
		t.Errorf("expected module name %q, got %q", "global-test", modules[0].Name())
	}
}
