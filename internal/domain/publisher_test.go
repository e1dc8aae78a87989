package domain_test

import (
	"errors"
	"testing"

	"pubspy/internal/domain"
)

func TestParsePublisherID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    domain.PublisherID
		wantErr bool
	}{
		{name: "canonical", input: "ca-pub-1234567890123456", want: "ca-pub-1234567890123456"},
		{name: "uppercase prefix", input: "CA-PUB-1234567890123456", want: "ca-pub-1234567890123456"},
		{name: "surrounding whitespace", input: "  ca-pub-1234567890123456\n", want: "ca-pub-1234567890123456"},
		{name: "fifteen digits", input: "ca-pub-123456789012345", wantErr: true},
		{name: "seventeen digits", input: "ca-pub-12345678901234567", wantErr: true},
		{name: "bare digits", input: "1234567890123456", wantErr: true},
		{name: "letters", input: "ca-pub-12345678901234ab", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got, err := domain.ParsePublisherID(tt.input)

			// Assert
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidPublisherID) {
					t.Errorf("error: got %v, want ErrInvalidPublisherID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("id: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizePublisherID(t *testing.T) {
	tests := []struct {
		input  string
		want   domain.PublisherID
		wantOK bool
	}{
		{"ca-pub-1234567890123456", "ca-pub-1234567890123456", true},
		{"CA-PUB-1234567890123456", "ca-pub-1234567890123456", true},
		{"pub-1234567890123456", "ca-pub-1234567890123456", true},
		{"1234567890123456", "ca-pub-1234567890123456", true},
		{`"ca-pub-1234567890123456"`, "ca-pub-1234567890123456", true},
		{"ca-pub-123", "", false},
		{"12345678901234567", "", false},
		{"ca-pub-", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := domain.NormalizePublisherID(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizePublisherID(%q): got (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPublisherID_DigitsAndMatches(t *testing.T) {
	id := domain.PublisherID("ca-pub-1234567890123456")

	if got := id.Digits(); got != "1234567890123456" {
		t.Errorf("Digits: got %q, want %q", got, "1234567890123456")
	}

	for _, v := range []string{"ca-pub-1234567890123456", "CA-PUB-1234567890123456", "1234567890123456", "pub-1234567890123456", " 1234567890123456 "} {
		if !id.Matches(v) {
			t.Errorf("Matches(%q): got false, want true", v)
		}
	}
	for _, v := range []string{"", "ca-pub-0000000000000000", "123456789012345"} {
		if id.Matches(v) {
			t.Errorf("Matches(%q): got true, want false", v)
		}
	}
}

func TestCanonicalDomain(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"https://www.Example.com/page?x=1", "example.com", true},
		{"http://blog.example.co.uk", "blog.example.co.uk", true},
		{"example.org/path", "example.org", true},
		{"https://example.com.:443/", "example.com", true},
		{"not a url", "", false},
		{"https:///nohost", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := domain.CanonicalDomain(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CanonicalDomain(%q): got (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMatchesDomain(t *testing.T) {
	if !domain.MatchesDomain("news.google.com", "google.com") {
		t.Error("subdomain should match parent")
	}
	if !domain.MatchesDomain("google.com", "google.com") {
		t.Error("exact domain should match")
	}
	if domain.MatchesDomain("notgoogle.com", "google.com") {
		t.Error("suffix without dot must not match")
	}
}

func TestFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       *domain.FetchError
		retryable bool
		isTarget  error
	}{
		{"not found", domain.NewStatusError("https://a.com/ads.txt", 404), false, domain.ErrNotFound},
		{"rate limited", domain.NewStatusError("https://a.com", 429), true, domain.ErrRateLimited},
		{"server error", domain.NewStatusError("https://a.com", 503), true, domain.ErrFetchFailed},
		{"client error", domain.NewStatusError("https://a.com", 403), false, domain.ErrFetchFailed},
		{"timeout", &domain.FetchError{Kind: domain.FetchTimeout, URL: "https://a.com"}, true, domain.ErrFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Retryable(); got != tt.retryable {
				t.Errorf("Retryable: got %v, want %v", got, tt.retryable)
			}
			if !errors.Is(tt.err, tt.isTarget) {
				t.Errorf("errors.Is(%v): got false, want true", tt.isTarget)
			}
		})
	}
}

func TestNormalizeTargetURL(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"example.com", "https://example.com/", false},
		{"  HTTP://Example.com/Recipes?id=1#top ", "http://example.com/Recipes?id=1", false},
		{"https://blog.example.co.uk/a/b", "https://blog.example.co.uk/a/b", false},
		{"ftp://example.com/file", "", true},
		{"javascript:alert(1)", "", true},
		{"https://localhost/", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := domain.NormalizeTargetURL(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidURL) {
					t.Errorf("error: got %v, want ErrInvalidURL", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %q, want %q", got.String(), tt.want)
			}
		})
	}
}
