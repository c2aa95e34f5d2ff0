package handlers

import (
	"io"
	"net/http"
	"strconv"

	"backdrop/internal/domain"
	"backdrop/internal/removal"
)

// multipartMemoryLimit bounds how much of the form is held in memory;
// larger parts spill to disk. The payload itself is capped separately.
const multipartMemoryLimit = 16 << 20

func (a *App) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	ac := a.requireAuth(w, r)
	if ac == nil {
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "expected multipart form data with an image field"))
		return
	}

	img, err := readImagePart(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	params := readParams(r)

	result, err := a.Remover.Run(r.Context(), ac, img, params)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="background-removed.`+formatExt(result.ContentType)+`"`)
	w.Header().Set("Cache-Control", "no-cache")
	if result.PredictionID != "" {
		w.Header().Set("X-Prediction-Id", result.PredictionID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func readImagePart(r *http.Request) (removal.Image, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		// Missing payload is distinct from a bad one.
		return removal.Image{}, domain.E(domain.KindInvalidInput, "no image provided")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, removal.MaxImageBytes+1))
	if err != nil {
		return removal.Image{}, domain.Wrap(domain.KindInternal, "failed to read upload", err)
	}
	contentType := header.Header.Get("Content-Type")
	return removal.Image{Data: data, ContentType: contentType}, nil
}

func readParams(r *http.Request) removal.Params {
	p := removal.Params{
		Format:         r.FormValue("format"),
		BackgroundType: r.FormValue("background_type"),
	}
	if v := r.FormValue("reverse"); v != "" {
		p.Reverse, _ = strconv.ParseBool(v)
	}
	if v := r.FormValue("threshold"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			p.Threshold = t
		}
	}
	return p
}

func formatExt(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
