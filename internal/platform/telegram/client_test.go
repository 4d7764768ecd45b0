package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var got sendMessageReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("TOKEN", srv.URL)
	require.NoError(t, c.SendMessage(context.Background(), 42, "olá"))
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "olá", got.Text)
}

func TestSendDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendDocument", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("chat_id"))
		assert.Equal(t, "report", r.FormValue("caption"))

		file, hdr, err := r.FormFile("document")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "report.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-fake", string(data))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("TOKEN", srv.URL)
	require.NoError(t, c.SendDocument(context.Background(), 7, []byte("%PDF-fake"), "report.pdf", "report"))
}

func TestAPIErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewClient("TOKEN", srv.URL).SendMessage(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewClient("", "").Configured())
	assert.True(t, NewClient("t", "").Configured())

	var nilClient *Client
	assert.False(t, nilClient.Configured())
}

func TestSendErrorsHideToken(t *testing.T) {
	const token = "123456:SECRET-BOT-TOKEN"
	c := NewClient(token, "http://127.0.0.1:1")

	err := c.SendDocument(context.Background(), 1, []byte("%PDF"), "a.pdf", "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
	assert.Contains(t, err.Error(), "failed to send telegram document")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"bad token ` + token + `"}`))
	}))
	defer srv.Close()

	err = NewClient(token, srv.URL).SendMessage(context.Background(), 1, "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
}
