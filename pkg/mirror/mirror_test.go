package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Endpoint
		wantErr bool
	}{
		{"https", "https://nitter.example.net", "https://nitter.example.net", false},
		{"trailing slash", "https://nitter.example.net/", "https://nitter.example.net", false},
		{"surrounding spaces", "  http://127.0.0.1:8080 ", "http://127.0.0.1:8080", false},
		{"with path", "https://bridge.example.net/api/", "https://bridge.example.net/api", false},
		{"blank", "   ", "", true},
		{"no scheme", "nitter.example.net", "", true},
		{"ftp", "ftp://nitter.example.net", "", true},
		{"no host", "https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPoolKeepsOrderAndDuplicates(t *testing.T) {
	pool, err := NewPool([]string{
		"https://b.example.net",
		"https://a.example.net",
		"https://b.example.net/",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, pool.Len())
	assert.Equal(t, []Endpoint{
		"https://b.example.net",
		"https://a.example.net",
		"https://b.example.net",
	}, pool.Endpoints())
	assert.Equal(t, Endpoint("https://a.example.net"), pool.Endpoints()[1])
}

func TestNewPoolErrors(t *testing.T) {
	_, err := NewPool(nil)
	assert.ErrorIs(t, err, ErrEmptyPool)

	_, err = NewPool([]string{"https://ok.example.net", "bad", "also bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Contains(t, err.Error(), `"also bad"`)
}

func TestEndpointsReturnsCopy(t *testing.T) {
	pool, err := NewPool([]string{"https://a.example.net"})
	require.NoError(t, err)

	eps := pool.Endpoints()
	eps[0] = "https://mutated.example.net"
	assert.Equal(t, Endpoint("https://a.example.net"), pool.Endpoints()[0])
}

func TestEndpointHost(t *testing.T) {
	assert.Equal(t, "nitter.example.net", Endpoint("https://nitter.example.net").Host())
	assert.Equal(t, "127.0.0.1:8080", Endpoint("http://127.0.0.1:8080").Host())
	assert.Equal(t, "garbage", Endpoint("garbage").Host())
}
