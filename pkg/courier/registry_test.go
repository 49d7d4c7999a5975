package courier_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/reconciler/pkg/courier"
	"github.com/tournevent/reconciler/pkg/courier/mock"
)

func TestRegistry_New(t *testing.T) {
	registry := courier.NewRegistry()
	registry.Register("mockcarrier", func(creds courier.Credentials) (courier.Tracker, error) {
		return mock.New("mockcarrier"), nil
	})

	tracker, err := registry.New("mockcarrier", courier.Credentials{Key: "key"})

	require.NoError(t, err)
	assert.Equal(t, "mockcarrier", tracker.Name())
}

func TestRegistry_New_NotFound(t *testing.T) {
	registry := courier.NewRegistry()

	_, err := registry.New("unknown", courier.Credentials{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, courier.ErrCarrierNotFound))
	assert.True(t, courier.IsConfiguration(err))
}

func TestRegistry_RequestScopedConstruction(t *testing.T) {
	var built []string
	registry := courier.NewRegistry()
	registry.Register("mockcarrier", func(creds courier.Credentials) (courier.Tracker, error) {
		built = append(built, creds.Key)
		return mock.New("mockcarrier"), nil
	})

	_, err := registry.New("mockcarrier", courier.Credentials{Key: "tenant-a"})
	require.NoError(t, err)
	_, err = registry.New("mockcarrier", courier.Credentials{Key: "tenant-b"})
	require.NoError(t, err)

	// A fresh tracker is built per call; credentials never leak across tenants.
	assert.Equal(t, []string{"tenant-a", "tenant-b"}, built)
}

func TestRegistry_FactoryError(t *testing.T) {
	registry := courier.NewRegistry()
	registry.Register("strict", func(creds courier.Credentials) (courier.Tracker, error) {
		if creds.Key == "" {
			return nil, courier.NewError("strict", courier.CodeConfiguration, "missing key").
				WithCause(courier.ErrCredentialsMissing)
		}
		return mock.New("strict"), nil
	})

	_, err := registry.New("strict", courier.Credentials{})

	require.Error(t, err)
	assert.True(t, courier.IsConfiguration(err))
}

func TestRegistry_Supports(t *testing.T) {
	registry := courier.NewRegistry()
	registry.Register("a", func(courier.Credentials) (courier.Tracker, error) {
		return mock.New("a"), nil
	})

	assert.True(t, registry.Supports("a"))
	assert.False(t, registry.Supports("b"))
}

func TestRegistry_NamesAndCount(t *testing.T) {
	registry := courier.NewRegistry()
	registry.Register("a", func(courier.Credentials) (courier.Tracker, error) { return mock.New("a"), nil })
	registry.Register("b", func(courier.Credentials) (courier.Tracker, error) { return mock.New("b"), nil })

	assert.Equal(t, 2, registry.Count())
	assert.ElementsMatch(t, []string{"a", "b"}, registry.Names())
}
