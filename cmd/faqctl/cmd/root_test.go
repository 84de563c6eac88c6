package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAsk_PrintsReplyAndModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/chat", r.URL.Path)
		var req faq.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "horario biblioteca", req.Message)
		distance := 0.125
		_ = json.NewEncoder(w).Encode(faq.ChatResponse{
			Reply:           "De 8 a 20 h.",
			Model:           faq.SourceKNN,
			Distance:        &distance,
			MatchedQuestion: "¿Horario de la biblioteca?",
		})
	}))
	defer server.Close()

	out, err := execute(t, "", "ask", "--server", server.URL, "horario", "biblioteca")
	require.NoError(t, err)
	require.Contains(t, out, "De 8 a 20 h.")
	require.Contains(t, out, "knn, distancia 0.1250")
}

func TestHashPassword_ReadsStdin(t *testing.T) {
	out, err := execute(t, "secreto123\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secreto123")))

	_, err = execute(t, "corta\n", "hash-password")
	require.Error(t, err)
}

func TestTrending_Table(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"recommendations":[{"query":"¿Cuánto cuesta la credencial?","count":7}]}`))
	}))
	defer server.Close()

	out, err := execute(t, "", "trending", "--server", server.URL)
	require.NoError(t, err)
	require.Contains(t, out, "COUNT")
	require.Contains(t, out, "7")
	require.Contains(t, out, "credencial")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "hola", truncate("hola", 10))
	require.Equal(t, "ab…", truncate("abcdef", 3))
}
