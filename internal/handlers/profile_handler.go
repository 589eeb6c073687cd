package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/prudhvinik1/medsync/internal/services"
	"github.com/prudhvinik1/medsync/internal/storage"
	"github.com/prudhvinik1/medsync/internal/xerrors"
)

const (
	maxMultipartMemory = 32 << 20
	maxRequestBytes    = 64 << 20
)

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		h.writeServiceError(w, r, xerrors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), account.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "Profile retrieved successfully", profile)
}

// HandleUpdateProfile reads a multipart form with an optional "profile" JSON
// part, an optional "profileImage" file, any number of "documents" files and
// "type_<i>" hints naming the type of the i-th document.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		h.writeServiceError(w, r, xerrors.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	update, err := readProfileUpdate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), account.ID, update)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "Profile updated successfully", profile)
}

func readProfileUpdate(r *http.Request) (services.ProfileUpdate, error) {
	form := r.MultipartForm
	update := services.ProfileUpdate{
		DocumentTypes: make(map[string]string),
	}

	// The JSON part may arrive as a plain field or as a file part.
	if values := form.Value["profile"]; len(values) > 0 {
		update.ProfileJSON = values[0]
	} else if headers := form.File["profile"]; len(headers) > 0 {
		file, err := readFile(headers[0])
		if err != nil {
			return update, err
		}
		update.ProfileJSON = string(file.Data)
	}

	if headers := form.File["profileImage"]; len(headers) > 0 {
		file, err := readFile(headers[0])
		if err != nil {
			return update, err
		}
		update.Avatar = &file
	}

	for _, header := range form.File["documents"] {
		file, err := readFile(header)
		if err != nil {
			return update, err
		}
		update.Documents = append(update.Documents, file)
	}

	// r.Form holds both query parameters and multipart values.
	for key, values := range r.Form {
		if strings.HasPrefix(key, "type_") && len(values) > 0 {
			update.DocumentTypes[key] = values[0]
		}
	}

	return update, nil
}

func readFile(header *multipart.FileHeader) (storage.File, error) {
	f, err := header.Open()
	if err != nil {
		return storage.File{}, fmt.Errorf("failed to open %s", header.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return storage.File{}, fmt.Errorf("failed to read %s", header.Filename)
	}

	return storage.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
