package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/signin", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)

		w.Header().Set("Content-Type", "application/json")
		if in["password"] != "test123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"email":"t@example.com","role":"farmer"},"token":"acc","refreshToken":"ref"}}`))
	})
	mux.HandleFunc("GET /api/users/verify", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer acc" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"email":"t@example.com","role":"farmer"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_SigninVerifyLogout(t *testing.T) {
	srv := fakeServer(t)
	session := filepath.Join(t.TempDir(), "session.json")
	flags := []string{"--url", srv.URL + "/api", "--session", session}

	var out, errOut bytes.Buffer
	code := run(context.Background(), append(flags, "signin", "--email", "t@example.com"),
		strings.NewReader("test123\n"), &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	require.Contains(t, out.String(), `"role": "farmer"`)

	raw, err := os.ReadFile(session)
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"acc","refreshToken":"ref"}`, string(raw))

	out.Reset()
	code = run(context.Background(), append(flags, "verify"), strings.NewReader(""), &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	require.Contains(t, out.String(), "t@example.com")

	out.Reset()
	code = run(context.Background(), append(flags, "logout"), strings.NewReader(""), &out, &errOut)
	require.Equal(t, 0, code)
	_, err = os.Stat(session)
	require.True(t, os.IsNotExist(err))

	errOut.Reset()
	code = run(context.Background(), append(flags, "verify"), strings.NewReader(""), &out, &errOut)
	require.Equal(t, 1, code)
	require.Contains(t, errOut.String(), "not signed in")
}

func TestRun_WrongPassword(t *testing.T) {
	srv := fakeServer(t)
	session := filepath.Join(t.TempDir(), "session.json")

	var out, errOut bytes.Buffer
	code := run(context.Background(),
		[]string{"--url", srv.URL + "/api", "--session", session, "signin", "--email", "t@example.com"},
		strings.NewReader("nope\n"), &out, &errOut)

	require.Equal(t, 1, code)
	require.Contains(t, errOut.String(), "invalid credentials (HTTP 401)")
	_, err := os.Stat(session)
	require.True(t, os.IsNotExist(err))
}

func TestRun_Usage(t *testing.T) {
	var out, errOut bytes.Buffer

	require.Equal(t, 2, run(context.Background(), nil, strings.NewReader(""), &out, &errOut))
	require.Equal(t, 2, run(context.Background(), []string{"--session", filepath.Join(t.TempDir(), "s"), "dance"},
		strings.NewReader(""), &out, &errOut))
	require.Contains(t, errOut.String(), `unknown command "dance"`)
}
