package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3d/particle-drawer/internal/auth"
	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/storage"
	"github.com/mythic3d/particle-drawer/internal/typeid"
)

func setup(t *testing.T, quota int) (*Service, storage.Repository, string, string) {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "projects.db"), quota)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	var ids []string
	for _, email := range []string{"owner@example.com", "other@example.com"} {
		u, err := repo.CreateUser(ctx, storage.User{ID: typeid.NewUserID(), Email: email, Password: "hash", DisplayName: email})
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}
	return NewService(repo), repo, ids[0], ids[1]
}

func TestCreateSeedsEmptySnapshot(t *testing.T) {
	svc, repo, owner, _ := setup(t, 0)
	ctx := context.Background()

	p, err := svc.Create(ctx, "  Fountain ", owner)
	require.NoError(t, err)
	assert.Equal(t, "Fountain", p.Name)
	assert.True(t, strings.HasPrefix(p.ID, "proj_"))

	snap, err := repo.GetLatestSnapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)

	doc, err := svc.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fountain", doc.Name)
	assert.Empty(t, doc.Groups)

	text, err := svc.Skill(ctx, p.ID, owner)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestOwnership(t *testing.T) {
	svc, _, owner, other := setup(t, 0)
	ctx := context.Background()
	p, err := svc.Create(ctx, "Mine", owner)
	require.NoError(t, err)

	_, err = svc.Get(ctx, p.ID, other)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, p.ID, other), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID, other), ErrForbidden)
	_, err = svc.Document(ctx, p.ID, other)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, "proj_missing", owner)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, p.ID, owner))
	_, err = svc.Get(ctx, p.ID, owner)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportRenameAndSkill(t *testing.T) {
	svc, _, owner, _ := setup(t, 0)
	ctx := context.Background()
	p, err := svc.Create(ctx, "Blank", owner)
	require.NoError(t, err)

	data, err := document.NewSampleProject().Marshal()
	require.NoError(t, err)
	res, err := svc.Import(ctx, p.ID, owner, data)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version)

	got, err := svc.Get(ctx, p.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Sample", got.Name)

	text, err := svc.Skill(ctx, p.ID, owner)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "SampleSkill:\n  Skills:\n"))

	_, err = svc.Import(ctx, p.ID, owner, []byte("{"))
	assert.ErrorIs(t, err, ErrInvalid)

	renamed, err := svc.Rename(ctx, p.ID, owner, " Comet ")
	require.NoError(t, err)
	assert.Equal(t, "Comet", renamed.Name)
	doc, err := svc.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Comet", doc.Name)
	assert.Len(t, doc.Groups, 2)

	_, err = svc.Rename(ctx, p.ID, owner, "   ")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestImportOverQuota(t *testing.T) {
	svc, _, owner, _ := setup(t, 2048)
	ctx := context.Background()
	p, err := svc.Create(ctx, "Small", owner)
	require.NoError(t, err)

	big := document.NewSampleProject()
	for i := 0; i < 50; i++ {
		big.Particles = append(big.Particles, document.ParticleRecord{X: float64(i), ParticleType: "flame"})
	}
	data, err := big.Marshal()
	require.NoError(t, err)
	_, err = svc.Import(ctx, p.ID, owner, data)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoadWithoutSnapshot(t *testing.T) {
	svc, repo, owner, _ := setup(t, 0)
	ctx := context.Background()
	p, err := repo.CreateProject(ctx, storage.Project{ID: typeid.NewProjectID(), Name: "Bare", OwnerID: owner})
	require.NoError(t, err)

	doc, err := svc.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bare", doc.Name)

	_, err = svc.Load(ctx, "proj_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newRouter(svc *Service, userID string) http.Handler {
	h := NewHandler(svc)
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), userID)))
		})
	})
	r.HandleFunc("/projects", h.List).Methods("GET")
	r.HandleFunc("/projects", h.Create).Methods("POST")
	r.HandleFunc("/projects/{projectId}", h.Get).Methods("GET")
	r.HandleFunc("/projects/{projectId}", h.Rename).Methods("PATCH")
	r.HandleFunc("/projects/{projectId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/projects/{projectId}/snapshot/latest", h.GetLatestSnapshot).Methods("GET")
	r.HandleFunc("/projects/{projectId}/document", h.Import).Methods("PUT")
	r.HandleFunc("/projects/{projectId}/skill", h.Skill).Methods("GET")
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandlers(t *testing.T) {
	svc, _, owner, other := setup(t, 0)
	r := newRouter(svc, owner)

	rec := do(t, r, "POST", "/projects", `{"name":"Ring"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p Project
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	base := "/projects/" + p.ID

	assert.Equal(t, http.StatusBadRequest, do(t, r, "POST", "/projects", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, "POST", "/projects", `nope`).Code)

	rec = do(t, r, "GET", "/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Project
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusOK, do(t, r, "GET", base, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "GET", "/projects/proj_missing", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, newRouter(svc, other), "GET", base, "").Code)

	rec = do(t, r, "GET", base+"/snapshot/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc, err := document.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Ring", doc.Name)

	sample, err := document.NewSampleProject().Marshal()
	require.NoError(t, err)
	rec = do(t, r, "PUT", base+"/document", string(sample))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, "PUT", base+"/document", "{").Code)

	rec = do(t, r, "GET", base+"/skill", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "effect:particles{")

	assert.Equal(t, http.StatusOK, do(t, r, "PATCH", base, `{"name":"Halo"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, "PATCH", base, `{"name":""}`).Code)

	assert.Equal(t, http.StatusNoContent, do(t, r, "DELETE", base, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "DELETE", base, "").Code)
}
