package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacentio/forumledger/forum"
)

// PrincipalHeader carries the authenticated caller, set by the fronting proxy.
const PrincipalHeader = "X-Forum-Principal"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Router builds the HTTP routes. A nil gatherer leaves /metrics unrouted.
//
//	POST /execute                          execute envelope
//	POST /query                            query envelope
//	POST /threads                          {"title","description"}
//	GET  /threads/{id}
//	POST /threads/{id}/elements            {"content"}
//	GET  /threads/{id}/elements/{elem}
//	GET  /healthz
//	GET  /metrics
func (s *Server) Router(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/execute", s.handleExecute).Methods(http.MethodPost)
	r.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)

	r.HandleFunc("/threads", s.createThread).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}", s.getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/elements", s.createThreadElement).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/elements/{elem}", s.getThreadElement).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	writeResponse(w, s.Execute(r.Context(), principal(r), body))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	writeResponse(w, s.Query(r.Context(), body))
}

// The resource routes build envelopes and reuse the envelope path.

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	var in forum.CreateThreadMsg
	if err := decodeBody(w, r, &in); err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	s.writeExecute(w, r, forum.ExecuteMsg{CreateThread: &in})
}

func (s *Server) createThreadElement(w http.ResponseWriter, r *http.Request) {
	threadID, err := pathID(r, "id")
	if err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if err := decodeBody(w, r, &in); err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	s.writeExecute(w, r, forum.ExecuteMsg{
		CreateThreadElem: &forum.CreateThreadElemMsg{ThreadID: threadID, Content: in.Content},
	})
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	s.writeQuery(w, r, forum.QueryMsg{Thread: &forum.ThreadQuery{ID: id}})
}

func (s *Server) getThreadElement(w http.ResponseWriter, r *http.Request) {
	threadID, err := pathID(r, "id")
	if err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	elemID, err := pathID(r, "elem")
	if err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	s.writeQuery(w, r, forum.QueryMsg{
		ThreadElem: &forum.ThreadElemQuery{ThreadID: threadID, ElemID: elemID},
	})
}

func (s *Server) writeExecute(w http.ResponseWriter, r *http.Request, msg forum.ExecuteMsg) {
	caller := principal(r)
	if caller == "" {
		writeResponse(w, s.errorResponse(forum.ErrUnauthenticated))
		return
	}
	if err := s.ledger.Execute(r.Context(), caller, msg); err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	writeResponse(w, Response{Status: http.StatusOK, Body: ackBody})
}

func (s *Server) writeQuery(w http.ResponseWriter, r *http.Request, msg forum.QueryMsg) {
	out, err := s.ledger.Query(r.Context(), msg)
	if err != nil {
		writeResponse(w, s.errorResponse(err))
		return
	}
	writeResponse(w, Response{Status: http.StatusOK, Body: out})
}

func principal(r *http.Request) forum.Principal {
	return forum.Principal(r.Header.Get(PrincipalHeader))
}

func pathID(r *http.Request, name string) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: path %s: %v", forum.ErrInvalidRequest, name, err)
	}
	return id, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", forum.ErrInvalidRequest, err)
	}
	return body, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", forum.ErrInvalidRequest, err)
	}
	return nil
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
