// internal/assets/assets_test.go
package assets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomKey(t *testing.T) {
	id := uuid.MustParse("5f0c1c1e-8f3a-4a53-9a51-3c2a6f7d0e11")

	key, err := RoomKey(id, "regras.pdf")
	require.NoError(t, err)
	assert.Equal(t, "rooms/5f0c1c1e-8f3a-4a53-9a51-3c2a6f7d0e11/regras.pdf", key)

	key, err = RoomKey(id, "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, RoomPrefix(id)+"passwd", key)

	key, err = RoomKey(id, `C:\maps\dungeon.png`)
	require.NoError(t, err)
	assert.Equal(t, RoomPrefix(id)+"dungeon.png", key)

	for _, bad := range []string{"", "  ", "..", "/"} {
		_, err := RoomKey(id, bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	a, b := uuid.New(), uuid.New()
	keyA, _ := RoomKey(a, "rules.pdf")
	keyB, _ := RoomKey(b, "map.png")

	require.NoError(t, m.Write(ctx, keyA, strings.NewReader("rulebook"), -1, "application/pdf"))
	require.NoError(t, m.Write(ctx, keyB, strings.NewReader("map"), 3, "image/png"))

	rc, err := m.Read(ctx, keyA)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "rulebook", string(data))

	files, err := m.List(ctx, RoomPrefix(a))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(8), files[0].Size)

	require.NoError(t, m.DeletePrefix(ctx, RoomPrefix(a)))
	_, err = m.Read(ctx, keyA)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Read(ctx, keyB)
	assert.NoError(t, err)
}

func TestS3StoreWriteUsesPathStyle(t *testing.T) {
	var mu sync.Mutex
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewS3Store(context.Background(), S3Config{
		Endpoint:        srv.URL,
		Bucket:          "campaigns",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	id := uuid.New()
	key, _ := RoomKey(id, "rules.pdf")
	require.NoError(t, s.Write(context.Background(), key, strings.NewReader("rulebook"), 8, "application/pdf"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/campaigns/"+key, path)
}
