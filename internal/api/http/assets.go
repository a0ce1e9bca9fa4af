// internal/api/http/assets.go
package http

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-ielts/internal/rbac"
	"github.com/mind-engage/mindengage-ielts/internal/storage"
)

const maxAudioBytes = 200 << 20

// audioTypes lists the accepted upload extensions and the content type each
// is served with.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
}

// MountAssets serves blobs on GET /* without authentication so audio
// elements can load them, and accepts listening audio on POST /audio behind
// authn for roles holding asset:upload.
func MountAssets(r chi.Router, bs storage.BlobStore, authn ...func(http.Handler) http.Handler) {
	upload := append(append([]func(http.Handler) http.Handler{}, authn...), rbac.Require("asset:upload"))

	// POST /assets/audio  multipart file=...
	r.With(upload...).Post("/audio", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		ext := strings.ToLower(filepath.Ext(hdr.Filename))
		if _, ok := audioTypes[ext]; !ok {
			http.Error(w, "unsupported audio type "+ext, http.StatusBadRequest)
			return
		}
		key, err := bs.Put("audio/"+uuid.NewString()+ext, f)
		if err != nil {
			glog.Errorf("store audio: %v", err)
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		u, err := bs.SignedURL(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key, "url": u})
	})

	// GET /assets/*   -> returns the blob at whatever follows /assets/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(key)
		if errors.Is(err, storage.ErrInvalidKey) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		ext := strings.ToLower(filepath.Ext(key))
		ct, ok := audioTypes[ext]
		if !ok {
			ct = mime.TypeByExtension(ext)
		}
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
