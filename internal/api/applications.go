package api

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/engagement"
)

type applyRequest struct {
	CoverLetter string   `json:"coverLetter"`
	Attachments []string `json:"attachments"`
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

// readApply accepts multipart or urlencoded forms with coverLetter and
// repeated attachments fields, or the same fields as JSON. Attachments are
// references to files held by the upload service.
func readApply(w http.ResponseWriter, r *http.Request) (engagement.ApplyInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var req applyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return engagement.ApplyInput{}, err
		}
		return engagement.ApplyInput{CoverLetter: req.CoverLetter, Attachments: req.Attachments}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
			return engagement.ApplyInput{}, formError(err)
		}
		if r.MultipartForm != nil && len(r.MultipartForm.File) > 0 {
			return engagement.ApplyInput{}, apperrors.Validation("upload files first and send their references as attachments")
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return engagement.ApplyInput{}, formError(err)
		}
	default:
		return engagement.ApplyInput{}, apperrors.Validation("unsupported content type %q", mediaType)
	}

	var attachments []string
	for _, ref := range r.PostForm["attachments"] {
		if ref = strings.TrimSpace(ref); ref != "" {
			attachments = append(attachments, ref)
		}
	}
	return engagement.ApplyInput{
		CoverLetter: r.PostFormValue("coverLetter"),
		Attachments: attachments,
	}, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Validation("request body is too large")
	}
	return apperrors.Validation("invalid form body: %v", err)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	in, err := readApply(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.engagement.Apply(r.Context(), actorFrom(r), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.engagement.UpdateApplicationStatus(r.Context(), actorFrom(r), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.engagement.Withdraw(r.Context(), actorFrom(r), r.PathValue("id"), req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
