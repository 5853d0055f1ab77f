// internal/httpapi/books.go
package httpapi

import (
	"net/http"

	"libradesk/internal/library"
)

// bookRequest is the body of POST, PUT and PATCH on books. availableCopies
// is derived by the service, so it is not accepted here.
type bookRequest struct {
	Title           *string  `json:"title"`
	Author          *string  `json:"author"`
	ISBN            *string  `json:"isbn"`
	Genre           *string  `json:"genre"`
	PublicationYear looseInt `json:"publicationYear"`
	TotalCopies     looseInt `json:"totalCopies"`
	Description     *string  `json:"description"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (b bookRequest) input() library.BookInput {
	in := library.BookInput{
		Title:       deref(b.Title),
		Author:      deref(b.Author),
		ISBN:        deref(b.ISBN),
		Genre:       deref(b.Genre),
		TotalCopies: b.TotalCopies.intPtr(),
		Description: deref(b.Description),
	}
	if year := b.PublicationYear.intPtr(); year != nil {
		in.PublicationYear = *year
	}
	return in
}

func (b bookRequest) patch() library.BookPatch {
	return library.BookPatch{
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Genre:           b.Genre,
		PublicationYear: b.PublicationYear.intPtr(),
		TotalCopies:     b.TotalCopies.intPtr(),
		Description:     b.Description,
	}
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) listAvailableBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListAvailableBooks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	book, err := h.service.AddBook(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	var req bookRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	book, err := h.service.UpdateBook(r.Context(), id, req.patch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
