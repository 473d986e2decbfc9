package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jferreira/maitrenotifie/core"
	"github.com/jferreira/maitrenotifie/core/homework"
	"github.com/jferreira/maitrenotifie/core/roster"
	rosterdb "github.com/jferreira/maitrenotifie/storage/roster"
)

// ---------------------------------------------------------------- test doubles

type stubExtractor struct {
	extract core.HomeworkExtract
	err     error
}

func (s *stubExtractor) Extract(context.Context, []byte, string) (core.HomeworkExtract, error) {
	return s.extract, s.err
}

type stubMailer struct {
	ok bool

	mu   sync.Mutex
	sent []core.EmailMessage
}

func (s *stubMailer) Send(_ context.Context, msg *core.EmailMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, *msg)
	return s.ok
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fixture struct {
	server    Server
	roster    *roster.Service
	extractor *stubExtractor
	mailer    *stubMailer
}

func setup(t *testing.T, classes ...roster.Class) *fixture {
	t.Helper()

	svc, err := roster.NewService(context.Background(), rosterdb.NewDummyRepository(classes...))
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	ext := &stubExtractor{extract: core.HomeworkExtract{HomeworkText: "p.10 n°2", Summary: "scales"}}
	mailer := &stubMailer{ok: true}
	ctrl := homework.NewController(svc, ext, mailer, nopLogger{})

	conf := &core.Config{
		AppName:          "MaîtreNotifie",
		TestMode:         true,
		DefaultFromEmail: mail.Address{Name: "MaîtreNotifie", Address: "eleves@musique-elancourt.fr"},
	}
	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         nopLogger{},
		RosterSvc:      svc,
		Workflow:       ctrl,
		DisableReqLogs: true,
	})
	return &fixture{server: server, roster: svc, extractor: ext, mailer: mailer}
}

func (f *fixture) do(t *testing.T, method, path string, body ...[]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if len(body) > 0 {
		buf.Write(body[0])
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(t *testing.T, path, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func pianoClass() roster.Class {
	return roster.Class{ID: "1", Name: "Piano", Students: []roster.Student{
		{ID: "s1", Name: "Léa", ParentEmail: "l@p.com"},
	}}
}

// ---------------------------------------------------------------------- tests

func TestMain(m *testing.M) {
	core.InitValidators()
	m.Run()
}

func Test_server_home(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bienvenue sur l'API MaîtreNotifie !", rec.Body.String())
}

func Test_rosterAPI_classes(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		f := setup(t, pianoClass())
		rec := f.do(t, http.MethodGet, "/v1/classes")
		require.Equal(t, http.StatusOK, rec.Code)

		var classes []roster.Class
		decode(t, rec, &classes)
		require.Len(t, classes, 1)
		assert.Equal(t, "Piano", classes[0].Name)
	})

	t.Run("create", func(t *testing.T) {
		f := setup(t)
		rec := f.do(t, http.MethodPost, "/v1/classes", []byte(`{"name": "Flute A"}`))
		require.Equal(t, http.StatusCreated, rec.Code)

		var cls roster.Class
		decode(t, rec, &cls)
		assert.NotEmpty(t, cls.ID)
		assert.Equal(t, "Flute A", cls.Name)
	})

	t.Run("create without name", func(t *testing.T) {
		f := setup(t)
		rec := f.do(t, http.MethodPost, "/v1/classes", []byte(`{}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		decode(t, rec, &fldErrs)
		assert.Contains(t, fldErrs, "name")
	})

	t.Run("destroy", func(t *testing.T) {
		f := setup(t, pianoClass())
		rec := f.do(t, http.MethodDelete, "/v1/classes/1")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodDelete, "/v1/classes/1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_rosterAPI_students(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		f := setup(t, pianoClass())
		rec := f.do(t, http.MethodPost, "/v1/classes/1/students",
			[]byte(`{"name": "Max", "parentEmail": "m@p.com", "parentPhone": "0601020304"}`))
		require.Equal(t, http.StatusCreated, rec.Code)

		var cls roster.Class
		decode(t, rec, &cls)
		assert.Len(t, cls.Students, 2)
	})

	t.Run("create with bad email", func(t *testing.T) {
		f := setup(t, pianoClass())
		rec := f.do(t, http.MethodPost, "/v1/classes/1/students",
			[]byte(`{"name": "Max", "parentEmail": "not-an-email"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		decode(t, rec, &fldErrs)
		assert.Contains(t, fldErrs, "parentEmail")
	})

	t.Run("create in unknown class", func(t *testing.T) {
		f := setup(t)
		rec := f.do(t, http.MethodPost, "/v1/classes/nope/students",
			[]byte(`{"name": "Max", "parentEmail": "m@p.com"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("destroy", func(t *testing.T) {
		f := setup(t, pianoClass())
		rec := f.do(t, http.MethodDelete, "/v1/classes/1/students/s1")
		require.Equal(t, http.StatusOK, rec.Code)

		var cls roster.Class
		decode(t, rec, &cls)
		assert.Empty(t, cls.Students)

		rec = f.do(t, http.MethodDelete, "/v1/classes/1/students/s1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_rosterAPI_import(t *testing.T) {
	csv := "Classe,Nom,Email\nPiano,Léa,l@p.com\nChant,Max,m@p.com\n"

	t.Run("csv upload", func(t *testing.T) {
		f := setup(t)
		rec := f.upload(t, "/v1/import", "file", "roster.csv", []byte(csv))
		require.Equal(t, http.StatusOK, rec.Code)

		var res map[string]int
		decode(t, rec, &res)
		assert.Equal(t, 2, res["classesProcessed"])
		assert.Len(t, f.roster.Classes(), 2)
	})

	t.Run("no usable rows", func(t *testing.T) {
		f := setup(t)
		rec := f.upload(t, "/v1/import", "file", "roster.csv", []byte("Classe,Nom,Email\n"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unreadable file", func(t *testing.T) {
		f := setup(t)
		rec := f.upload(t, "/v1/import", "file", "roster.xlsx", []byte("not a workbook"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing form field", func(t *testing.T) {
		f := setup(t)
		rec := f.upload(t, "/v1/import", "wrong", "roster.csv", []byte(csv))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_workflowAPI(t *testing.T) {
	t.Run("full journey", func(t *testing.T) {
		f := setup(t, pianoClass())

		rec := f.do(t, http.MethodGet, "/v1/state")
		require.Equal(t, http.StatusOK, rec.Code)
		var st homework.State
		decode(t, rec, &st)
		assert.Equal(t, homework.ScreenDashboard, st.Screen)

		rec = f.do(t, http.MethodPost, "/v1/workflow/classes/1/select")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/v1/workflow/scan")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.upload(t, "/v1/workflow/capture", "image", "note.jpg", []byte("img"))
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &st)
		assert.Equal(t, homework.ScreenValidating, st.Screen)
		require.NotNil(t, st.Draft)
		assert.Equal(t, "p.10 n°2", st.Draft.HomeworkText)

		rec = f.do(t, http.MethodPut, "/v1/workflow/draft", []byte(`{"homeworkText": "p.12 n°4"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &st)
		require.NotNil(t, st.Draft)
		assert.Equal(t, "p.12 n°4", st.Draft.HomeworkText)

		rec = f.do(t, http.MethodPost, "/v1/workflow/confirm")
		require.Equal(t, http.StatusOK, rec.Code)
		var res struct {
			homework.SendResult
			State homework.State `json:"state"`
		}
		decode(t, rec, &res)
		assert.True(t, res.Sent)
		assert.Equal(t, homework.ScreenDashboard, res.State.Screen)

		require.Len(t, f.mailer.sent, 1)
		assert.Equal(t, "l@p.com", f.mailer.sent[0].To[0].Address)
		assert.True(t, strings.Contains(f.mailer.sent[0].Subject, "Piano"))
	})

	t.Run("edit draft without text", func(t *testing.T) {
		f := setup(t, pianoClass())

		f.do(t, http.MethodPost, "/v1/workflow/classes/1/select")
		f.do(t, http.MethodPost, "/v1/workflow/scan")
		f.upload(t, "/v1/workflow/capture", "image", "note.jpg", []byte("img"))

		rec := f.do(t, http.MethodPut, "/v1/workflow/draft", []byte(`{"homeworkText": "  "}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		decode(t, rec, &fldErrs)
		assert.Contains(t, fldErrs, "homeworkText")

		// the draft is untouched
		rec = f.do(t, http.MethodGet, "/v1/state")
		var st homework.State
		decode(t, rec, &st)
		require.NotNil(t, st.Draft)
		assert.Equal(t, "p.10 n°2", st.Draft.HomeworkText)
	})

	t.Run("invalid transitions conflict", func(t *testing.T) {
		f := setup(t, pianoClass())

		for _, path := range []string{"/v1/workflow/back", "/v1/workflow/scan", "/v1/workflow/confirm"} {
			rec := f.do(t, http.MethodPost, path)
			assert.Equal(t, http.StatusConflict, rec.Code, path)
		}
	})

	t.Run("select unknown class", func(t *testing.T) {
		f := setup(t)
		rec := f.do(t, http.MethodPost, "/v1/workflow/classes/nope/select")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("extraction failure maps to bad gateway", func(t *testing.T) {
		f := setup(t, pianoClass())
		f.extractor.err = core.NewExtractionError(assert.AnError)

		f.do(t, http.MethodPost, "/v1/workflow/classes/1/select")
		f.do(t, http.MethodPost, "/v1/workflow/scan")
		rec := f.upload(t, "/v1/workflow/capture", "image", "note.jpg", []byte("img"))
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var body map[string]string
		decode(t, rec, &body)
		assert.Equal(t, "Erreur lors de l'analyse de l'image. Vérifiez votre connexion.", body["error"])
	})

	t.Run("confirm without recipients", func(t *testing.T) {
		cls := roster.Class{ID: "1", Name: "Piano", Students: []roster.Student{
			{ID: "s1", Name: "A", ParentEmail: ""},
		}}
		f := setup(t, cls)

		f.do(t, http.MethodPost, "/v1/workflow/classes/1/select")
		f.do(t, http.MethodPost, "/v1/workflow/scan")
		f.upload(t, "/v1/workflow/capture", "image", "note.jpg", []byte("img"))

		rec := f.do(t, http.MethodPost, "/v1/workflow/confirm")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		decode(t, rec, &body)
		assert.Equal(t, "Aucun parent ne peut être notifié dans cette classe.", body["error"])
		assert.Empty(t, f.mailer.sent)
	})
}
