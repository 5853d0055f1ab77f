// internal/httpapi/members.go
package httpapi

import (
	"net/http"

	"libradesk/internal/library"
)

type memberRequest struct {
	Name       *string             `json:"name"`
	Email      *string             `json:"email"`
	Phone      *string             `json:"phone"`
	Address    *string             `json:"address"`
	MemberType *library.MemberType `json:"memberType"`
}

func (m memberRequest) input() library.MemberInput {
	in := library.MemberInput{
		Name:    deref(m.Name),
		Email:   deref(m.Email),
		Phone:   deref(m.Phone),
		Address: deref(m.Address),
	}
	if m.MemberType != nil {
		in.MemberType = *m.MemberType
	}
	return in
}

func (m memberRequest) patch() library.MemberPatch {
	return library.MemberPatch{
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Address:    m.Address,
		MemberType: m.MemberType,
	}
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	member, err := h.service.AddMember(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *Handler) updateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	var req memberRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	member, err := h.service.UpdateMember(r.Context(), id, req.patch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) deleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := h.service.DeleteMember(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
