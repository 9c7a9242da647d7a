package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = secret ,bad, =x,tenant=vault")
	require.Equal(t, map[string]string{"api-key": "secret", "tenant": "vault"}, got)
	require.Empty(t, ParseHeaders(""))
}

func TestParseSampleRatio(t *testing.T) {
	require.Equal(t, 0.25, ParseSampleRatio("0.25"))
	require.Equal(t, 1.0, ParseSampleRatio(""))
	require.Equal(t, 1.0, ParseSampleRatio("2"))
	require.Equal(t, 1.0, ParseSampleRatio("nope"))
}

func TestInitWithoutExporters(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "vaultd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestResourceCarriesChainID(t *testing.T) {
	res, err := buildResource(Config{ServiceName: "vaultd", ChainID: "stakevault-local", Environment: "test"})
	require.NoError(t, err)
	value, ok := res.Set().Value(attribute.Key("stakevault.chain_id"))
	require.True(t, ok)
	require.Equal(t, "stakevault-local", value.AsString())
}
