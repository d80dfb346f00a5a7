package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"
	"e2e_relay/internal/utils/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const multipartMemory = 32 << 20

func (s *HttpServer) HandleUpload() http.HandlerFunc {
	type response struct {
		Success       bool                `json:"success"`
		FileID        string              `json:"fileId"`
		DownloadToken string              `json:"downloadToken"`
		DownloadURL   string              `json:"downloadUrl"`
		Metadata      *model.FileMetadata `json:"metadata"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeJSON(w, http.StatusRequestEntityTooLarge,
					errorResponse{Error: fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes)})
				return
			}
			writeError(w, common.NewValidationError("body", "malformed multipart form"))
			return
		}

		iv := r.FormValue("iv")
		authTag := r.FormValue("authTag")
		uploaderID := r.FormValue("uploaderId")
		switch {
		case iv == "":
			writeError(w, common.NewValidationError("iv", "required"))
			return
		case authTag == "":
			writeError(w, common.NewValidationError("authTag", "required"))
			return
		case uploaderID == "":
			writeError(w, common.NewValidationError("uploaderId", "required"))
			return
		}

		originalSize, err := strconv.ParseInt(r.FormValue("originalSize"), 10, 64)
		if err != nil || originalSize < 0 {
			writeError(w, common.NewValidationError("originalSize", "must be a non-negative integer"))
			return
		}

		blob, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, common.NewValidationError("file", "required"))
			return
		}
		defer blob.Close()

		filename := r.FormValue("filename")
		if filename == "" {
			filename = "encrypted"
		}
		mimeType := r.FormValue("mimeType")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		meta := &model.FileMetadata{
			ID:           uuid.NewString(),
			Filename:     filename,
			MimeType:     mimeType,
			IV:           iv,
			AuthTag:      authTag,
			OriginalSize: originalSize,
			UploaderID:   uploaderID,
			UploadedAt:   time.Now().UTC(),
		}
		if err := s.files.Save(ctx, meta, blob); err != nil {
			writeError(w, err)
			return
		}

		tok, err := s.issuer.Issue(ctx, meta.ID, s.cfg.DownloadMaxUses, s.cfg.DownloadTTL)
		if err != nil {
			writeError(w, err)
			return
		}

		log.Info("encrypted file stored",
			zap.String("fileId", meta.ID), zap.Int64("bytes", meta.EncryptedSize))
		writeJSON(w, http.StatusOK, response{
			Success:       true,
			FileID:        meta.ID,
			DownloadToken: tok.Token,
			DownloadURL:   "/files/download?token=" + tok.Token,
			Metadata:      meta,
		})
	}
}

func (s *HttpServer) HandleDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, common.NewValidationError("token", "required"))
			return
		}

		// Resolve the token and fetch metadata before consuming a use, so a
		// storage hiccup here does not burn the caller's only redemption.
		fileID, err := s.issuer.Peek(ctx, token)
		if err != nil {
			writeError(w, err)
			return
		}

		meta, err := s.files.Get(ctx, fileID)
		if err != nil {
			writeError(w, err)
			return
		}

		if _, err := s.issuer.Redeem(ctx, token); err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.Filename))
		w.Header().Set("Content-Length", strconv.FormatInt(meta.EncryptedSize, 10))

		if _, err := s.files.Download(ctx, fileID, w); err != nil {
			// Headers are gone; all that is left is to log.
			log.Error("blob stream failed", zap.String("fileId", fileID), zap.Error(err))
		}
	}
}
