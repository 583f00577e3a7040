package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nutriplay-engine/internal/catalog"
	"nutriplay-engine/internal/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func newBackend(t *testing.T, routes map[string]string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		seen = append(seen, rec)

		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"no route"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func authed() context.Context {
	return WithToken(context.Background(), "tok-123")
}

func TestStartSessionSendsWireFields(t *testing.T) {
	srv, seen := newBackend(t, map[string]string{
		"POST /sesiones/iniciar": `{"success":true,"message":"ok","data":{"id":"S1","nivelJugado":1}}`,
	})
	client := NewClient(srv.URL + "/")

	id, err := client.StartSession(authed(), "nutrition-challenge", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id != "S1" {
		t.Fatalf("expected S1, got %s", id)
	}
	req := (*seen)[0]
	if req.Auth != "Bearer tok-123" {
		t.Fatalf("expected bearer auth, got %q", req.Auth)
	}
	if req.Body["juegoId"] != "nutrition-challenge" || req.Body["nivel"] != float64(1) {
		t.Fatalf("unexpected body %+v", req.Body)
	}
}

func TestEnvelopeFailure(t *testing.T) {
	srv, _ := newBackend(t, map[string]string{
		"PUT /sesiones/finalizar": `{"success":false,"message":"session closed","data":null}`,
	})
	client := NewClient(srv.URL)

	err := client.FinishSession(authed(), "S1", 60, 4, true)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "session closed" {
		t.Fatalf("expected api error with message, got %v", err)
	}
}

func TestNonSuccessStatus(t *testing.T) {
	srv, _ := newBackend(t, nil)
	client := NewClient(srv.URL)

	_, err := client.FetchPoints(authed())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 api error, got %v", err)
	}
}

func TestMissingTokenIsUnauthenticated(t *testing.T) {
	srv, seen := newBackend(t, nil)
	client := NewClient(srv.URL)

	if _, err := client.FetchPoints(context.Background()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if len(*seen) != 0 {
		t.Fatalf("no request should be sent without a token")
	}
}

func TestDiaryEntryMapping(t *testing.T) {
	srv, seen := newBackend(t, map[string]string{
		"POST /sesiones/reto7dias/registro": `{"success":true,"message":"ok","data":null}`,
	})
	client := NewClient(srv.URL)

	entry := domain.DiaryEntry{
		Day:      2,
		Slot:     domain.Lunch,
		Counts:   domain.FoodCounts{Fruit: 1, Protein: 1},
		Mood:     domain.MoodStressed,
		Calories: 210,
	}
	if err := client.SubmitDiaryEntry(authed(), "S1", entry); err != nil {
		t.Fatalf("submit: %v", err)
	}
	body := (*seen)[0].Body
	if body["momentoDia"] != "Almuerzo" || body["emocion"] != "estresado" || body["caloriasEstimadas"] != float64(210) {
		t.Fatalf("unexpected diary body %+v", body)
	}
	if _, ok := body["notas"]; ok {
		t.Fatalf("empty note must be omitted")
	}
}

func TestQuizAndSurveyPaths(t *testing.T) {
	srv, seen := newBackend(t, map[string]string{
		"POST /sesiones/nutrimental/respuesta": `{"success":true,"message":"ok"}`,
		"POST /sesiones/coach/respuesta":       `{"success":true,"message":"ok"}`,
	})
	client := NewClient(srv.URL)

	item := catalog.QuizItems()[2]
	if err := client.SubmitQuizAnswer(authed(), "S1", item, true, 7); err != nil {
		t.Fatalf("quiz: %v", err)
	}
	survey := catalog.SurveyItems()[0]
	if err := client.SubmitSurveyAnswer(authed(), "S1", survey, 4); err != nil {
		t.Fatalf("survey: %v", err)
	}

	quiz := (*seen)[0].Body
	if quiz["preguntaNumero"] != float64(3) || quiz["preguntaTema"] != "Hidratación" || quiz["respuestaCorrecta"] != true || quiz["tiempoRespuesta"] != float64(7) {
		t.Fatalf("unexpected quiz body %+v", quiz)
	}
	coach := (*seen)[1].Body
	if coach["preguntaNumero"] != float64(1) || coach["preguntaEtapa"] != "Pre-contemplación" || coach["respuestaValor"] != float64(4) {
		t.Fatalf("unexpected survey body %+v", coach)
	}
}

func TestListDecoding(t *testing.T) {
	srv, _ := newBackend(t, map[string]string{
		"GET /estudiantes/puntos":                 `{"success":true,"message":"ok","data":320}`,
		"GET /juegos/mi-progreso":                 `{"success":true,"message":"ok","data":[{"id":"g1","nombre":"Quiz","maxNiveles":5,"puntosPorNivel":50,"nivelActual":2}]}`,
		"GET /sesiones/mis-sesiones":              `{"success":true,"message":"ok","data":[{"id":"S1","juegoNombre":"Quiz","nivelJugado":1,"puntosObtenidos":60,"tiempoJugado":40,"completado":true,"fechaSesion":"2024-11-22T10:00:00"}]}`,
		"GET /estudiantes/mis-notificaciones":     `{"success":true,"message":"ok","data":[{"id":"n1","titulo":"Hi","mensaje":"Welcome","fecha":"2024-11-22T10:00:00Z","leida":false}]}`,
		"PUT /estudiantes/notificaciones/n1/leer": `{"success":true,"message":"ok"}`,
	})
	client := NewClient(srv.URL, WithTimeout(time.Second))
	ctx := authed()

	points, err := client.FetchPoints(ctx)
	if err != nil || points != 320 {
		t.Fatalf("points: %d %v", points, err)
	}
	games, err := client.ListGames(ctx)
	if err != nil || len(games) != 1 || games[0].PointsPerLevel != 50 || games[0].CurrentLevel != 2 {
		t.Fatalf("games: %+v %v", games, err)
	}
	sessions, err := client.ListSessions(ctx)
	if err != nil || len(sessions) != 1 || sessions[0].PlayedAt.Day() != 22 {
		t.Fatalf("sessions: %+v %v", sessions, err)
	}
	notes, err := client.ListNotifications(ctx)
	if err != nil || len(notes) != 1 || notes[0].Title != "Hi" || notes[0].Read {
		t.Fatalf("notifications: %+v %v", notes, err)
	}
	if err := client.MarkNotificationRead(ctx, "n1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
}

func TestStudentID(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "student-7"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "raw", token: signed, want: "student-7"},
		{name: "bearer prefix", token: "Bearer " + signed, want: "student-7"},
		{name: "empty", token: "", wantErr: true},
		{name: "garbage", token: "not-a-jwt", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := StudentID(tc.token)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrUnauthenticated) {
					t.Fatalf("expected unauthenticated, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("got %q, %v", got, err)
			}
		})
	}
}
