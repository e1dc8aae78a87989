package verifier_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubspy/internal/adapters/httpclient"
	"pubspy/internal/adapters/verifier"
	"pubspy/internal/domain"
	"pubspy/test/fixtures"
)

func homepageFor(srv *httptest.Server) *verifier.Homepage {
	return verifier.NewHomepage(httpclient.NewWithHTTPClient(srv.Client())).
		WithURL(func(string) string { return srv.URL + "/" })
}

func TestHomepage_Verify_MatchIsContentHeuristic(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixtures.GenerateAdSensePage()))
	}))
	defer srv.Close()

	// Act
	res, err := homepageFor(srv).Verify(context.Background(), "example.com", testID)

	// Assert
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, domain.MethodContentHeuristic, res.Method)
	assert.Equal(t, domain.ConfidenceWeak, res.Method.Confidence())
}

func TestHomepage_Verify_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixtures.GenerateNoAdsPage()))
	}))
	defer srv.Close()

	res, err := homepageFor(srv).Verify(context.Background(), "example.com", testID)

	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, domain.MethodNone, res.Method)
}

func TestHomepage_Verify_UnreachableIsNeutral(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	res, err := homepageFor(srv).Verify(context.Background(), "example.com", testID)

	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, domain.MethodNone, res.Method)
	assert.Equal(t, verifier.DetailHomepageUnreachable, res.Detail)
}

func TestContainsPublisherID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"canonical", `<script>ca-pub-1234567890123456</script>`, true},
		{"uppercase canonical", `CA-PUB-1234567890123456`, true},
		{"bare digits in attribute", `<div data-ad-client="1234567890123456">`, true},
		{"google_ad_client assignment", `google_ad_client = "pub-1234567890123456";`, true},
		{"longer digit run", `id=12345678901234567`, false},
		{"other publisher", `ca-pub-6543210987654321`, false},
		{"empty", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verifier.ContainsPublisherID(tt.content, testID))
		})
	}
}
