package loader_test

import (
	"errors"
	"testing"

	"conformer-pipeline/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type fakeFeature struct {
	name    string
	enabled bool
	loadErr error
	loaded  bool
}

func (f *fakeFeature) Name() string    { return f.name }
func (f *fakeFeature) IsEnabled() bool { return f.enabled }
func (f *fakeFeature) Load(app fiber.Router) error {
	f.loaded = true
	return f.loadErr
}

func TestLoadAll(t *testing.T) {
	app := fiber.New()
	mgr := loader.NewManager()

	enabled := &fakeFeature{name: "a", enabled: true}
	disabled := &fakeFeature{name: "b", enabled: false}
	mgr.Register(enabled)
	mgr.Register(disabled)

	err := mgr.LoadAll(app)
	assert.NoError(t, err)
	assert.True(t, enabled.loaded)
	assert.False(t, disabled.loaded)
}

func TestLoadAll_Error(t *testing.T) {
	app := fiber.New()
	mgr := loader.NewManager()

	boom := errors.New("boom")
	mgr.Register(&fakeFeature{name: "bad", enabled: true, loadErr: boom})
	after := &fakeFeature{name: "after", enabled: true}
	mgr.Register(after)

	err := mgr.LoadAll(app)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")
	assert.False(t, after.loaded)
}
