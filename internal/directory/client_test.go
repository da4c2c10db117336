package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	c := NewClient("https://vo.example.org/api", "admin", "secret")

	// md5("secret") = 5ebe2294ecd0e0f08eab7690d2a6ee69
	assert.Equal(t, "A/admin/5ebe2294ecd0e0f08eab7690d2a6ee69", c.token())
}

func TestVerifyLogin(t *testing.T) {
	testCases := []struct {
		name          string
		status        int
		response      string
		expectedID    string
		wantTransport bool
		wantAPI       bool
	}{
		{
			name:       "valid credentials",
			status:     http.StatusOK,
			response:   `["4711"]`,
			expectedID: "4711",
		},
		{
			name:       "numeric id",
			status:     http.StatusOK,
			response:   `[4711]`,
			expectedID: "4711",
		},
		{
			name:       "invalid credentials",
			status:     http.StatusOK,
			response:   `[""]`,
			expectedID: "",
		},
		{
			name:       "empty array",
			status:     http.StatusOK,
			response:   `[]`,
			expectedID: "",
		},
		{
			name:     "error payload",
			status:   http.StatusOK,
			response: `{"error":"Zugriff verweigert"}`,
			wantAPI:  true,
		},
		{
			name:          "server error",
			status:        http.StatusInternalServerError,
			response:      `boom`,
			wantTransport: true,
		},
		{
			name:          "malformed body",
			status:        http.StatusOK,
			response:      `not json`,
			wantTransport: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "VerifyLogin", r.URL.Query().Get("api"))
				assert.Equal(t, "A/admin/5ebe2294ecd0e0f08eab7690d2a6ee69", r.Header.Get("Authorization"))

				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "alice", body["user"])
				assert.Equal(t, "id", body["result"])

				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.response))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "admin", "secret")
			id, err := c.VerifyLogin(context.Background(), "alice", "pw")

			switch {
			case tc.wantTransport:
				var transportErr *TransportError
				require.ErrorAs(t, err, &transportErr)
			case tc.wantAPI:
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.expectedID, id)
			}
		})
	}
}

func TestVerifyLoginUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "admin", "secret")

	_, err := c.VerifyLogin(context.Background(), "alice", "pw")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestGetMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GetMember", r.URL.Query().Get("api"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "4711", body["id"])

		_, _ = w.Write([]byte(`{
			"userlogin": "Alice",
			"vorname": "Alice",
			"nachname": "Albers",
			"p_email": "alice@example.org",
			"gruppenids": "1,2",
			"foto": "fotos/alice.jpg",
			"geloescht": "0"
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret")
	member, err := c.GetMember(context.Background(), "4711")
	require.NoError(t, err)

	assert.Equal(t, "Alice", member.Login)
	assert.Equal(t, "Alice Albers", member.DisplayName())
	assert.Equal(t, "alice@example.org", member.Email)
	assert.Equal(t, "1,2", member.GroupIDs)
	assert.False(t, member.IsDeleted())
}

func TestMemberIsDeleted(t *testing.T) {
	assert.False(t, Member{Deleted: ""}.IsDeleted())
	assert.False(t, Member{Deleted: "0"}.IsDeleted())
	assert.True(t, Member{Deleted: "1"}.IsDeleted())
	assert.True(t, Member{Deleted: "2024-05-01"}.IsDeleted())
}

func TestGetMembers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GetMembers", r.URL.Query().Get("api"))
		_, _ = w.Write([]byte(`[{"id":"1","name":"Alice Albers"},{"id":"2","name":"Bob Berg"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret")
	roster, err := c.GetMembers(context.Background())
	require.NoError(t, err)

	require.Len(t, roster, 2)
	assert.Equal(t, RosterEntry{ID: "1", Name: "Alice Albers"}, roster[0])
}

func TestCheck(t *testing.T) {
	testCases := []struct {
		name          string
		response      string
		expectedError error
	}{
		{
			name:     "reachable, probe user unknown",
			response: `[""]`,
		},
		{
			name:     "reachable, probe user rejected with api error",
			response: `{"error":"Benutzer unbekannt"}`,
		},
		{
			name:          "access denied",
			response:      `{"error":"Zugriff verweigert!"}`,
			expectedError: ErrAccessDenied,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.response))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "admin", "secret")
			err := c.Check(context.Background())

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCheckUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "admin", "secret")

	err := c.Check(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestPhotoURL(t *testing.T) {
	c := NewClient("https://verein.example.org/api", "admin", "secret")

	testCases := []struct {
		name          string
		photo         string
		expected      string
		expectedError error
	}{
		{
			name:     "relative path resolves against the api host",
			photo:    "fotos/alice.jpg",
			expected: "https://verein.example.org/api/fotos/alice.jpg",
		},
		{
			name:     "absolute url on the api host",
			photo:    "https://verein.example.org/media/alice.jpg",
			expected: "https://verein.example.org/media/alice.jpg",
		},
		{
			name:     "subdomain of the api host",
			photo:    "https://cdn.verein.example.org/alice.jpg",
			expected: "https://cdn.verein.example.org/alice.jpg",
		},
		{
			name:          "foreign host rejected",
			photo:         "https://evil.example.com/alice.jpg",
			expectedError: ErrUntrustedPhotoHost,
		},
		{
			name:          "suffix without dot boundary rejected",
			photo:         "https://notverein.example.org.evil.com/alice.jpg",
			expectedError: ErrUntrustedPhotoHost,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := c.PhotoURL(tc.photo)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, resolved)
			}
		})
	}
}

func TestFetchPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret")
	data, err := c.FetchPhoto(context.Background(), srv.URL+"/alice.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
}

func TestFetchPhotoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret")
	_, err := c.FetchPhoto(context.Background(), srv.URL+"/missing.jpg")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}
