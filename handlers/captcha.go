package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/dchest/captcha"
	"github.com/go-chi/chi/v5"
)

type captchaResponse struct {
	CaptchaID string `json:"captchaId"`
	ImageURL  string `json:"imageUrl"`
}

// NewCaptcha issues a fresh challenge. The image lives at /auth/captcha/<id>.png.
func (h *Handler) NewCaptcha(w http.ResponseWriter, r *http.Request) {
	id := captcha.New()
	writeJSON(w, http.StatusOK, captchaResponse{
		CaptchaID: id,
		ImageURL:  "/auth/captcha/" + id + ".png",
	})
}

func (h *Handler) CaptchaImage(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if path.Ext(file) != ".png" {
		writeError(w, r, http.StatusNotFound, "CaptchaNotFound")
		return
	}
	id := strings.TrimSuffix(file, ".png")
	if r.URL.Query().Get("reload") != "" && !captcha.Reload(id) {
		writeError(w, r, http.StatusNotFound, "CaptchaNotFound")
		return
	}

	var buf bytes.Buffer
	if err := captcha.WriteImage(&buf, id, captcha.StdWidth, captcha.StdHeight); err != nil {
		if errors.Is(err, captcha.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "CaptchaNotFound")
			return
		}
		h.internalError(w, r, "render captcha", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// verifyCaptcha consumes the challenge whether or not the answer is right.
func verifyCaptcha(id, solution string) bool {
	if id == "" || solution == "" {
		return false
	}
	return captcha.VerifyString(id, strings.TrimSpace(solution))
}
