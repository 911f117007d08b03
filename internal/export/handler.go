// Package export converts between project files and skill text over HTTP. It is
// stateless; stored projects are exported through the project API.
package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/skill"
)

const maxUploadSize = 8 << 20 // 8MB

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Skill converts the project file in the body to skill text. With ?download=1 the text
// is returned as a .yml attachment named after the skill id.
func (h *Handler) Skill(w http.ResponseWriter, r *http.Request) {
	p, ok := readProject(w, r)
	if !ok {
		return
	}

	text := skill.GenerateProject(p)
	if text == "" {
		http.Error(w, "project has no particles", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.yml"`, sanitize(p.Settings.SkillID)))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))
	io.WriteString(w, text)

	slog.Info("skill exported", "skill", p.Settings.SkillID, "size", len(text))
}

// Project returns the body's project file normalized, as a download.
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	p, ok := readProject(w, r)
	if !ok {
		return
	}

	data, err := p.Marshal()
	if err != nil {
		slog.Error("marshal project", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, sanitize(p.Name), document.FileExtension))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// ImportSkill turns skill text back into a project file. The optional name query
// parameter names the project; it defaults to the skill id.
func (h *Handler) ImportSkill(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	sk, err := skill.Parse(string(body))
	if err != nil {
		if errors.Is(err, skill.ErrInvalid) || errors.Is(err, skill.ErrNoEffects) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("parse skill", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if sk.Skipped > 0 {
		slog.Info("skill import skipped entries", "skill", sk.ID, "skipped", sk.Skipped)
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = sk.ID
	}
	data, err := sk.Project(name).Marshal()
	if err != nil {
		slog.Error("marshal project", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func readProject(w http.ResponseWriter, r *http.Request) (*document.Project, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return nil, false
	}
	p, err := document.Parse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return p, true
}

// sanitize keeps a name safe for a Content-Disposition filename.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	if name == "" {
		return "drawing"
	}
	return name
}
