package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nutriplay-engine/internal/app"
	"nutriplay-engine/internal/catalog"
	"nutriplay-engine/internal/gateway"
	"nutriplay-engine/internal/infra/memory"
)

// fakeBackend mimics the platform REST API with the response envelope.
type fakeBackend struct {
	mu       sync.Mutex
	points   int
	starts   int
	finishes []map[string]any
	answers  int
	readIDs  []string
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sesiones/iniciar", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.starts++
		b.mu.Unlock()
		envelope(w, map[string]any{"id": "S1"})
	})
	mux.HandleFunc("POST /sesiones/nutrimental/respuesta", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.answers++
		b.mu.Unlock()
		envelope(w, nil)
	})
	mux.HandleFunc("PUT /sesiones/finalizar", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.finishes = append(b.finishes, body)
		b.mu.Unlock()
		envelope(w, nil)
	})
	mux.HandleFunc("GET /estudiantes/puntos", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		envelope(w, b.points)
	})
	mux.HandleFunc("GET /juegos/mi-progreso", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, []map[string]any{
			{"id": catalog.QuizGameID, "nombre": "Nutrition Challenge", "nivelActual": 1},
			{"id": "retired-game", "nombre": "Retired"},
		})
	})
	mux.HandleFunc("GET /sesiones/mis-sesiones", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, []map[string]any{{"id": "S0", "juegoNombre": "Nutrition Challenge", "puntosObtenidos": 60, "completado": true}})
	})
	mux.HandleFunc("GET /estudiantes/mis-notificaciones", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, []map[string]any{{"id": "n1", "titulo": "Welcome", "leida": false}})
	})
	mux.HandleFunc("PUT /estudiantes/notificaciones/{id}/leer", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.readIDs = append(b.readIDs, r.PathValue("id"))
		b.mu.Unlock()
		envelope(w, nil)
	})
	return mux
}

func (b *fakeBackend) finishCalls() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.finishes...)
}

func (b *fakeBackend) markedRead() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.readIDs...)
}

func envelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "ok", "data": data})
}

// newTestServer wires the engine against a fake backend and returns the engine's URL.
func newTestServer(t *testing.T, backend *fakeBackend) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(backend.handler())
	t.Cleanup(upstream.Close)

	games := memory.NewGameRepository(memory.NewStaticGameLoader(catalog.Default()), time.Minute)
	service := app.NewGameService(memory.NewSessionStore(), games, gateway.NewClient(upstream.URL), app.NewStateStore(nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/play", NewWSHandler(service).ServeWS)
	NewAPIHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func studentToken(t *testing.T, studentID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": studentID}).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
